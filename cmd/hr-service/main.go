package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendanceevents "github.com/staffdesk/staffdesk/internal/attendance/events"
	attendancerepo "github.com/staffdesk/staffdesk/internal/attendance/repository"
	attendancesvc "github.com/staffdesk/staffdesk/internal/attendance/service"
	auditrepo "github.com/staffdesk/staffdesk/internal/audit/repository"
	auditsvc "github.com/staffdesk/staffdesk/internal/audit/service"
	"github.com/staffdesk/staffdesk/internal/auth/jwt"
	"github.com/staffdesk/staffdesk/internal/auth/middleware"
	authsvc "github.com/staffdesk/staffdesk/internal/auth/service"
	"github.com/staffdesk/staffdesk/internal/auth/session"
	departmentrepo "github.com/staffdesk/staffdesk/internal/department/repository"
	departmentsvc "github.com/staffdesk/staffdesk/internal/department/service"
	notificationrepo "github.com/staffdesk/staffdesk/internal/notification/repository"
	notificationsvc "github.com/staffdesk/staffdesk/internal/notification/service"
	payrollevents "github.com/staffdesk/staffdesk/internal/payroll/events"
	payrollrepo "github.com/staffdesk/staffdesk/internal/payroll/repository"
	payrollsvc "github.com/staffdesk/staffdesk/internal/payroll/service"
	reportsvc "github.com/staffdesk/staffdesk/internal/report/service"
	"github.com/staffdesk/staffdesk/internal/scope"
	taskevents "github.com/staffdesk/staffdesk/internal/task/events"
	taskrepo "github.com/staffdesk/staffdesk/internal/task/repository"
	tasksvc "github.com/staffdesk/staffdesk/internal/task/service"
	userevents "github.com/staffdesk/staffdesk/internal/user/events"
	userrepo "github.com/staffdesk/staffdesk/internal/user/repository"
	usersvc "github.com/staffdesk/staffdesk/internal/user/service"
	"github.com/staffdesk/staffdesk/internal/web"
	"github.com/staffdesk/staffdesk/pkg/config"
	"github.com/staffdesk/staffdesk/pkg/database"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

const serviceName = "hr-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("staffdesk")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting StaffDesk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database and bring the schema up to date
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	if len(applied) > 0 {
		log.Info().Strs("versions", applied).Msg("migrations applied")
	}

	// Messaging is optional; without a broker events are dropped and email is log-only
	var publisher messaging.EventPublisher = messaging.NewNopPublisher(log)
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled() {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = messaging.NewPublisher(rmq, cfg.RabbitMQ.Exchange, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("RabbitMQ not configured, events will not be published")
	}

	// Repositories
	auditRepo := auditrepo.NewAuditRepository(db)
	departmentRepo := departmentrepo.NewDepartmentRepository(db)
	userRepo := userrepo.NewUserRepository(db)
	attendanceRepo := attendancerepo.NewAttendanceRepository(db)
	taskRepo := taskrepo.NewTaskRepository(db)
	payslipRepo := payrollrepo.NewPayslipRepository(db)
	notificationRepo := notificationrepo.NewNotificationRepository(db)

	// Services
	auditService := auditsvc.NewAuditService(auditRepo, log.WithComponent("audit"))
	departmentService := departmentsvc.NewDepartmentService(departmentRepo, db, auditService, log.WithComponent("departments"))
	userService := usersvc.NewUserService(
		userRepo,
		departmentService,
		db,
		userevents.NewUserEventPublisher(publisher, log),
		auditService,
		log.WithComponent("users"),
	)

	sessions := session.NewStore(cfg.JWT.SessionExpiry)
	userService.SetSessionSync(sessions)
	authService := authsvc.NewAuthService(userService, sessions, jwt.NewManager(&cfg.JWT), auditService, &cfg.Auth, log.WithComponent("auth"))

	resolver := scope.NewResolver(departmentService, userService)
	notifier := notificationsvc.NewSubject(log,
		notificationsvc.NewInAppSink(notificationRepo),
		notificationsvc.NewEmailSink(publisher, userService, log),
		notificationsvc.NewLogSink(log),
	)

	attendanceService := attendancesvc.NewAttendanceService(
		attendanceRepo, userService, resolver, notifier,
		attendanceevents.NewAttendanceEventPublisher(publisher, log),
		log.WithComponent("attendance"),
	)
	taskService := tasksvc.NewTaskService(
		taskRepo, userService, resolver, notifier,
		taskevents.NewTaskEventPublisher(publisher, log),
		auditService,
		log.WithComponent("tasks"),
	)
	payrollService := payrollsvc.NewPayrollService(
		payslipRepo, userService, resolver, notifier,
		payrollevents.NewPayrollEventPublisher(publisher, log),
		auditService,
		log.WithComponent("payroll"),
	)
	reportService := reportsvc.NewReportService(taskService, attendanceService, payrollService, log.WithComponent("reports"))
	inboxService := notificationsvc.NewInboxService(notificationRepo)

	// Bootstrap data
	if _, err := departmentService.EnsureDefault(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure default department")
	}
	created, err := authService.EnsureDefaultAdmin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure default admin")
	}
	if created {
		log.Warn().Str("username", cfg.Auth.DefaultAdminUsername).Msg("default admin created, change its password")
	}

	// Background jobs
	go sessions.RunSweeper(ctx, cfg.Auth.SweepInterval, log.WithComponent("sessions"))
	if cfg.Scheduler.Enabled {
		reminder := tasksvc.NewDeadlineReminder(taskRepo, notifier, log.WithComponent("reminders"))
		go reminder.Run(ctx, cfg.Scheduler.ReminderInterval)
	}

	authenticator := middleware.NewAuthenticator(authService, log)
	pages, err := web.New(web.Services{
		Auth:        authService,
		Users:       userService,
		Departments: departmentService,
		Attendance:  attendanceService,
		Tasks:       taskService,
		Payroll:     payrollService,
		Inbox:       inboxService,
		Reports:     reportService,
	}, authenticator, cfg.Server.SecureCookie, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load page templates")
	}

	handlers := &apiHandlers{
		auth:          authService,
		users:         userService,
		departments:   departmentService,
		attendance:    attendanceService,
		tasks:         taskService,
		payroll:       payrollService,
		inbox:         inboxService,
		reports:       reportService,
		audit:         auditService,
		authenticator: authenticator,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newRouter(cfg, db, rmq, handlers, pages, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the background jobs
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
