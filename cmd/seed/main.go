package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"taskhub/internal/auth"
	"taskhub/internal/cache"
	"taskhub/internal/config"
	"taskhub/internal/db"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

const demoPassword = "password123"

type seedUser struct {
	Name  string
	Email string
}

var demoUsers = []seedUser{
	{Name: "Alice Owner", Email: "alice@taskhub.dev"},
	{Name: "Bob Admin", Email: "bob@taskhub.dev"},
	{Name: "Carol Member", Email: "carol@taskhub.dev"},
	{Name: "Dave Viewer", Email: "dave@taskhub.dev"},
}

type seedTask struct {
	Title    string
	Status   model.TaskStatus
	Priority model.Priority
	Assignee int
	Hours    string
	DueIn    time.Duration
}

var demoTasks = []seedTask{
	{Title: "Draft launch plan", Status: model.TaskStatusCompleted, Priority: model.PriorityHigh, Assignee: 0, Hours: "6"},
	{Title: "Design landing page", Status: model.TaskStatusInProgress, Priority: model.PriorityMedium, Assignee: 2, Hours: "12.5", DueIn: 7 * 24 * time.Hour},
	{Title: "Review pricing copy", Status: model.TaskStatusReview, Priority: model.PriorityLow, Assignee: 1, Hours: "2"},
	{Title: "Set up analytics", Status: model.TaskStatusTodo, Priority: model.PriorityCritical, Assignee: 2, Hours: "4", DueIn: 3 * 24 * time.Hour},
}

func main() {
	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Redis().Close()

	userRepo := repository.NewUserRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, jwtService, auth.NewTokenStore(cacheClient))
	// No subscribers exist while seeding, so events are discarded.
	projectService := service.NewProjectService(projectRepo, taskRepo, userRepo, nil)
	taskService := service.NewTaskService(taskRepo, projectRepo, nil)

	ctx := context.Background()

	users := make([]*model.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		user, err := ensureUser(ctx, authService, userRepo, u)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.Email, err)
		}
		users = append(users, user)
	}
	log.Printf("Seeded %d users (password %q)", len(users), demoPassword)

	due := time.Now().Add(30 * 24 * time.Hour)
	project, err := projectService.Create(ctx, users[0].ID, service.CreateProjectInput{
		Name:        "Website Relaunch",
		Description: "Demo project created by the seed script",
		Status:      model.ProjectStatusActive,
		Priority:    model.PriorityHigh,
		DueDate:     &due,
		Tags:        []string{"demo", "marketing"},
	})
	if err != nil {
		log.Fatalf("Failed to create project: %v", err)
	}

	roles := []model.Role{model.RoleAdmin, model.RoleMember, model.RoleViewer}
	for i, role := range roles {
		if _, err := projectService.AddMember(ctx, project.ID, users[0].ID, users[i+1].ID, role); err != nil {
			log.Fatalf("Failed to add member %s: %v", users[i+1].Email, err)
		}
	}

	for _, t := range demoTasks {
		if err := createTask(ctx, taskService, project.ID, users, t); err != nil {
			log.Fatalf("Failed to create task %q: %v", t.Title, err)
		}
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Project: %s (%s)", project.Name, project.ID)
	log.Printf("  - Members added: %d", len(roles))
	log.Printf("  - Tasks created: %d", len(demoTasks))
}

// ensureUser registers u, or loads the existing account when the email is taken.
func ensureUser(ctx context.Context, authService service.AuthService, users repository.UserRepository, u seedUser) (*model.User, error) {
	result, err := authService.Register(ctx, u.Name, u.Email, demoPassword)
	if err == nil {
		return result.User, nil
	}
	if !errors.Is(err, apperrors.ErrDuplicateEmail) {
		return nil, err
	}
	existing, err := users.FindByEmail(ctx, u.Email)
	if err != nil {
		return nil, fmt.Errorf("load existing user: %w", err)
	}
	return existing, nil
}

func createTask(ctx context.Context, tasks service.TaskService, projectID uuid.UUID, users []*model.User, t seedTask) error {
	hours, err := decimal.NewFromString(t.Hours)
	if err != nil {
		return fmt.Errorf("parse hours: %w", err)
	}
	in := service.CreateTaskInput{
		ProjectID:      projectID,
		Title:          t.Title,
		Status:         t.Status,
		Priority:       t.Priority,
		AssignedTo:     &users[t.Assignee].ID,
		Tags:           []string{"demo"},
		EstimatedHours: &hours,
	}
	if t.DueIn > 0 {
		due := time.Now().Add(t.DueIn)
		in.DueDate = &due
	}

	task, err := tasks.Create(ctx, users[0].ID, in)
	if err != nil {
		return err
	}
	_, err = tasks.AddComment(ctx, task.ID, users[t.Assignee].ID, "Picked this up.")
	return err
}
