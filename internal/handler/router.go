package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pedagosys-api/internal/middleware"
)

// Routes groups every handler mounted under the API prefix.
type Routes struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Assignments   *AssignmentHandler
	Quiz          *QuizHandler
	Submissions   *SubmissionHandler
	Grades        *GradeHandler
	Announcements *AnnouncementHandler
	Posts         *PostHandler
	Schedule      *ScheduleHandler
	Chat          *ChatHandler
}

// Register mounts the routes on api. authn must authenticate the caller.
func (r Routes) Register(api *gin.RouterGroup, authn gin.HandlerFunc) {
	api.POST("/auth/login", r.Auth.Login)
	api.POST("/auth/register", r.Auth.Register)
	api.GET("/downloads/:token", r.Posts.Download)

	secured := api.Group("")
	secured.Use(authn)
	privileged := middleware.RequirePrivileged()

	secured.GET("/auth/me", r.Auth.Me)

	secured.GET("/users", privileged, r.Users.List)
	secured.PATCH("/users/me", r.Users.UpdateProfile)
	secured.GET("/users/:id", r.Users.Get)
	secured.POST("/users/:id/approve", middleware.RequireElevated(), r.Users.Approve)

	secured.GET("/assignments", r.Assignments.List)
	secured.POST("/assignments", privileged, r.Assignments.Create)
	secured.GET("/assignments/authored", privileged, r.Assignments.Authored)
	secured.GET("/assignments/:id", r.Assignments.Get)
	secured.POST("/assignments/:id/comments", r.Assignments.Comment)
	secured.GET("/leaderboard", r.Assignments.Leaderboard)

	secured.GET("/assignments/:id/quiz", r.Quiz.Status)
	secured.POST("/assignments/:id/quiz/start", r.Quiz.Start)
	secured.PUT("/assignments/:id/quiz/answers", r.Quiz.Answer)
	secured.POST("/assignments/:id/quiz/submit", r.Quiz.Submit)
	secured.DELETE("/assignments/:id/quiz", r.Quiz.Abandon)

	secured.POST("/assignments/:id/submissions/upload", r.Submissions.Upload)
	secured.GET("/assignments/:id/submissions", privileged, r.Submissions.List)
	secured.GET("/submissions/assignments", privileged, r.Submissions.Assignments)
	secured.PATCH("/submissions/:id/grade", privileged, r.Submissions.Grade)

	secured.PUT("/grades/scores", privileged, r.Grades.SetScore)
	secured.GET("/grades/sheet", privileged, r.Grades.ClassSheet)
	secured.GET("/grades/sheet/export", privileged, r.Grades.Export)
	secured.GET("/grades/report-card", r.Grades.ReportCard)

	secured.GET("/announcements", r.Announcements.List)
	secured.POST("/announcements", privileged, r.Announcements.Create)
	secured.DELETE("/announcements/:id", r.Announcements.Delete)
	secured.GET("/announcements/:id/image", r.Announcements.Image)

	secured.GET("/posts", r.Posts.List)
	secured.POST("/posts", r.Posts.Create)
	secured.GET("/posts/:id", r.Posts.Get)
	secured.DELETE("/posts/:id", r.Posts.Delete)
	secured.POST("/posts/:id/like", r.Posts.Like)
	secured.POST("/posts/:id/comments", r.Posts.Comment)
	secured.POST("/posts/:id/download-link", r.Posts.DownloadLink)

	secured.GET("/schedule", r.Schedule.List)
	secured.POST("/schedule", privileged, r.Schedule.Create)
	secured.DELETE("/schedule/:id", r.Schedule.Delete)

	secured.POST("/chat", r.Chat.Stream)
}
