package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/genai"
	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/pkg/jobs"
)

const (
	generationJobType   = "ai_exercises"
	generationQuestions = 10
	generationGrade     = "12"
	generationTimedMins = 45
	minExerciseRunes    = 50
	generationLifetime  = 48 * time.Hour
	generationDateFmt   = "2006-01-02"
)

// Generation outcomes reported to metrics.
const (
	GenerationSucceeded = "succeeded"
	GenerationDiscarded = "discarded"
	GenerationFailed    = "failed"
)

var generationSubjects = []string{"Toán Học", "Vật Lý", "Hóa Học"}

type exerciseGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
}

type generatedAssignmentStore interface {
	Prepend(ctx context.Context, assignments ...models.Assignment) error
}

type generationSettings interface {
	LastGenerationDate(ctx context.Context) (string, bool)
	SetLastGenerationDate(ctx context.Context, date string) error
}

// GeneratorOptions tunes the daily exercise batch.
type GeneratorOptions struct {
	Delay   time.Duration
	Workers int
	Random  *rand.Rand
	Sleep   func(ctx context.Context, d time.Duration) error
}

// GeneratorService produces the daily pair of generated quizzes on a
// background queue. Failures are logged and never retried.
type GeneratorService struct {
	ai          exerciseGenerator
	store       generatedAssignmentStore
	settings    generationSettings
	leaderboard *LeaderboardService
	metrics     *MetricsService
	logger      *zap.Logger
	now         Clock
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	randMu sync.Mutex
	random *rand.Rand

	queue *jobs.Queue
}

// NewGeneratorService builds the generator and its queue. Call Start before triggering.
func NewGeneratorService(ai exerciseGenerator, store generatedAssignmentStore, settings generationSettings, leaderboard *LeaderboardService, metrics *MetricsService, logger *zap.Logger, opts GeneratorOptions) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	s := &GeneratorService{
		ai:          ai,
		store:       store,
		settings:    settings,
		leaderboard: leaderboard,
		metrics:     metrics,
		logger:      logger,
		now:         systemClock,
		delay:       opts.Delay,
		sleep:       opts.Sleep,
		random:      opts.Random,
	}
	s.queue = jobs.NewQueue("ai-generation", s.handle, jobs.QueueConfig{
		Workers: opts.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the queue workers.
func (s *GeneratorService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains the workers.
func (s *GeneratorService) Stop() { s.queue.Stop() }

// TriggerDaily enqueues today's batch when viewer is privileged and no batch
// has been stored today. A batch already pending is not enqueued twice.
func (s *GeneratorService) TriggerDaily(ctx context.Context, viewer models.Viewer) {
	if !viewer.Role.IsPrivileged() {
		return
	}
	s.trigger(ctx, viewer.ID)
}

// TriggerStartup enqueues today's batch on behalf of the system.
func (s *GeneratorService) TriggerStartup(ctx context.Context) {
	s.trigger(ctx, "system")
}

func (s *GeneratorService) trigger(ctx context.Context, requestedBy string) {
	if s.ai == nil || !s.ai.Enabled() {
		return
	}
	today := s.now().Format(generationDateFmt)
	if last, ok := s.settings.LastGenerationDate(ctx); ok && last == today {
		return
	}
	err := s.queue.EnqueueUnique(jobs.Job{
		ID:      "ai-exercises-" + today,
		Type:    generationJobType,
		Payload: today,
	})
	switch {
	case err == nil:
		s.logger.Info("exercise generation enqueued", zap.String("date", today), zap.String("requested_by", requestedBy))
	case errors.Is(err, jobs.ErrDuplicate):
	default:
		s.logger.Warn("exercise generation not enqueued", zap.Error(err))
	}
}

func (s *GeneratorService) handle(ctx context.Context, job jobs.Job) error {
	date, _ := job.Payload.(string)
	if date == "" {
		date = s.now().Format(generationDateFmt)
	}
	if last, ok := s.settings.LastGenerationDate(ctx); ok && last == date {
		return nil
	}

	created := make([]models.Assignment, 0, 2)
	for i := 0; i < 2; i++ {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return err
			}
		}
		assignment, ok := s.generateOne(ctx, i)
		if ok {
			created = append(created, assignment)
		}
	}
	if len(created) == 0 {
		return nil
	}

	if err := s.store.Prepend(ctx, created...); err != nil && !persistenceOnly(err) {
		s.logger.Error("generated exercises not stored", zap.Error(err))
		return nil
	} else if err != nil {
		s.logger.Warn("generated exercises not persisted", zap.Error(err))
	}
	if err := s.settings.SetLastGenerationDate(ctx, date); err != nil {
		s.logger.Warn("generation date not persisted", zap.Error(err))
	}
	s.leaderboard.Invalidate(ctx)
	s.logger.Info("exercise generation finished", zap.String("date", date), zap.Int("created", len(created)))
	return nil
}

func (s *GeneratorService) generateOne(ctx context.Context, index int) (models.Assignment, bool) {
	hard := index == 1
	subject := s.pickSubject()

	content, err := s.ai.Generate(ctx, genai.ExamInstruction(), genai.ExercisePrompt(subject, generationGrade, generationQuestions))
	if err != nil {
		s.metrics.RecordGeneration(GenerationFailed)
		s.logger.Warn("exercise generation failed", zap.Int("iteration", index), zap.String("subject", subject), zap.Error(err))
		return models.Assignment{}, false
	}
	if !usableExercise(content) {
		s.metrics.RecordGeneration(GenerationDiscarded)
		s.logger.Warn("exercise generation discarded", zap.Int("iteration", index), zap.String("subject", subject))
		return models.Assignment{}, false
	}

	now := s.now()
	config := &models.QuizConfig{
		TotalQuestions: generationQuestions,
		AnswerKey:      s.randomKey(generationQuestions),
	}
	title := fmt.Sprintf("[Thi Thử] %s - Tốc độ", subject)
	if hard {
		title = fmt.Sprintf("[Nâng Cao] %s - Tư duy", subject)
	} else {
		minutes := generationTimedMins
		config.DurationMinutes = &minutes
	}

	s.metrics.RecordGeneration(GenerationSucceeded)
	return models.Assignment{
		ID:          "ai_" + uuid.NewString(),
		AuthorID:    models.AITutorID,
		AuthorName:  models.AITutorName,
		Title:       title,
		Body:        content,
		Audience:    models.EveryoneAudience(),
		Deadline:    now.Add(generationLifetime),
		CreatedAt:   now.Add(time.Duration(index) * time.Second),
		Submissions: []models.Submission{},
		Comments:    []models.Comment{},
		QuizConfig:  config,
	}, true
}

func usableExercise(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && !strings.Contains(content, "Error") && utf8.RuneCountInString(trimmed) >= minExerciseRunes
}

func (s *GeneratorService) pickSubject() string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return generationSubjects[s.random.Intn(len(generationSubjects))]
}

func (s *GeneratorService) randomKey(total int) map[int]string {
	choices := [...]string{"A", "B", "C", "D"}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	key := make(map[int]string, total)
	for q := 1; q <= total; q++ {
		key[q] = choices[s.random.Intn(len(choices))]
	}
	return key
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
