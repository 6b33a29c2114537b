package genai

import (
	"embed"
	"fmt"
	"strings"

	"github.com/noah-isme/pedagosys-api/internal/models"
)

//go:embed prompts/*.txt
var promptFS embed.FS

func prompt(name string) string {
	raw, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func personaFor(role models.UserRole) string {
	switch role {
	case models.RoleDeveloper:
		return prompt("developer")
	case models.RoleAdmin:
		return prompt("admin")
	case models.RoleTeacher:
		return prompt("teacher")
	default:
		return prompt("student")
	}
}

// SystemInstruction assembles the chat persona for viewer.
func SystemInstruction(viewer models.Viewer) string {
	parts := []string{
		"=== PHẦN 0: QUY TẮC ỨNG XỬ CHUNG ===",
		prompt("general"),
		"=== PHẦN 1: PERSONA THEO VAI TRÒ ===",
		personaFor(viewer.Role),
		"=== PHẦN 2: KIẾN THỨC NỀN TẢNG ===",
		prompt("curriculum"),
		prompt("scope"),
	}
	if viewer.Role == models.RoleTeacher || viewer.Role == models.RoleAdmin {
		parts = append(parts, "=== PHẦN 3: KỸ NĂNG CHUYÊN MÔN ===", prompt("exam_rules"))
	}
	parts = append(parts,
		"==================================",
		fmt.Sprintf("USER CONTEXT: Tên: %s | Vai trò: %s", viewer.Name, viewer.Role),
		"Yêu cầu: Hãy tuân thủ nghiêm ngặt các quy tắc ở Phần 0 và Persona ở Phần 1.",
	)
	return strings.Join(parts, "\n\n")
}

// ExamInstruction is the system instruction for exercise generation.
func ExamInstruction() string {
	return strings.Join([]string{
		"=== QUY TẮC SOẠN ĐỀ THI ===",
		prompt("general"),
		"Vai trò: Bạn là chuyên gia soạn đề thi trắc nghiệm khách quan.",
		prompt("exam_rules"),
		prompt("curriculum"),
		prompt("scope"),
	}, "\n\n")
}

// ExercisePrompt asks for questions multiple-choice questions on subject.
func ExercisePrompt(subject, grade string, questions int) string {
	return fmt.Sprintf("Soạn %d câu trắc nghiệm môn %s lớp %s có đáp án.", questions, subject, grade)
}
