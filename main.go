package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"scenario-annotator/config"
	"scenario-annotator/database"
	"scenario-annotator/logger"
	"scenario-annotator/web"
	"scenario-annotator/web/entity"
	"scenario-annotator/web/service"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

func initLogger() {
	var level logging.Level
	switch config.GetLogLevel() {
	case config.Debug:
		level = logging.DEBUG
	case config.Info:
		level = logging.INFO
	case config.Notice:
		level = logging.NOTICE
	case config.Warn:
		level = logging.WARNING
	case config.Error:
		level = logging.ERROR
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}
	logger.InitLogger(level, config.GetLogFolder())
}

// openRegistry returns the configured user registry and a function releasing it.
func openRegistry() (service.Registry, func(), error) {
	if err := os.MkdirAll(config.GetDataFolderPath(), 0o755); err != nil {
		return nil, nil, err
	}
	switch config.GetUserStore() {
	case config.UserStoreSQLite:
		if err := database.InitDB(config.GetDBPath()); err != nil {
			return nil, nil, err
		}
		return database.NewRegistry(), func() {
			if err := database.CloseDB(); err != nil {
				logger.Warning("close database err:", err)
			}
		}, nil
	default:
		return service.NewJSONRegistry(config.GetUsersFilePath()), func() {}, nil
	}
}

func newServer(registry service.Registry) *web.Server {
	return web.NewServer(registry, config.GetDatasetPath(), config.GetDataFolderPath())
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	initLogger()
	defer logger.CloseLogger()

	registry, closeRegistry, err := openRegistry()
	if err != nil {
		log.Fatal(err)
	}
	defer closeRegistry()

	logger.Infof("dataset: %s, data: %s, user store: %s",
		config.GetDatasetPath(), config.GetDataFolderPath(), config.GetUserStore())

	server := newServer(registry)
	if err := server.Start(); err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("received SIGHUP, restarting")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = newServer(registry)
			if err := server.Start(); err != nil {
				log.Println(err)
				return
			}
		default:
			logger.Infof("received %v, shutting down", sig)
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

// withUsers runs fn with a UserService on the configured registry.
func withUsers(fn func(users *service.UserService) error) error {
	registry, closeRegistry, err := openRegistry()
	if err != nil {
		return err
	}
	defer closeRegistry()
	return fn(service.NewUserService(registry, config.GetDataFolderPath()))
}

func newStatusService() (*service.ScenarioService, *service.StatusService) {
	scenarios := service.NewScenarioService(config.GetDatasetPath())
	annotations := service.NewAnnotationService(config.GetDataFolderPath())
	return scenarios, service.NewStatusService(scenarios, annotations)
}

func registerUser(name string) error {
	return withUsers(func(users *service.UserService) error {
		user, err := users.Register(name)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (data folder %s)\n", user.Username,
			service.UserDataPath(config.GetDataFolderPath(), user.NormalizedName))
		return nil
	})
}

func listUsers() error {
	return withUsers(func(users *service.UserService) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "USERNAME\tLOGINS\tREGISTERED\tLAST LOGIN")
		for _, u := range users.Stats() {
			last := "-"
			if u.LastLogin != nil {
				last = entity.FormatTimestamp(u.LastLogin.Time)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", u.Username, u.LoginCount,
				entity.FormatTimestamp(u.RegisteredAt.Time), last)
		}
		return w.Flush()
	})
}

func showProgress(username string) {
	_, status := newStatusService()
	p := status.OverallProgress(username)
	fmt.Printf("completed %d of %d scenarios (%.1f%%)\n",
		p.CompletedScenarios, p.TotalScenarios, p.ProgressPercentage)
	if p.ImpossibleScenarios > 0 {
		fmt.Printf("marked impossible: %d\n", p.ImpossibleScenarios)
		for _, name := range p.ImpossibleScenarioNames {
			fmt.Println("  " + name)
		}
	}
}

func listScenarios(username string) error {
	scenarios, status := newStatusService()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if username == "" {
		fmt.Fprintln(w, "SCENARIO\tGIF\tPLOTS")
		for _, s := range scenarios.ListScenarios() {
			fmt.Fprintf(w, "%s\t%t\t%t\n", s.Name, s.HasGif, s.HasPlots)
		}
		return w.Flush()
	}

	fmt.Fprintln(w, "SCENARIO\tANNOTATIONS\tCOMPLETE\tLAST UPDATED")
	for _, s := range status.ScenariosWithStatus(username) {
		complete, impossible := service.IsComplete(s.Status)
		state := fmt.Sprint(complete)
		if impossible {
			state = service.ClassImpossible
		}
		updated := "-"
		if s.Status.LastUpdated != nil {
			updated = entity.FormatTimestamp(s.Status.LastUpdated.Time)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Name, s.Status.Total, state, updated)
	}
	return w.Flush()
}

func main() {
	var rootCmd = &cobra.Command{
		Use:          config.GetName(),
		Short:        "Web application for annotating driving scenarios",
		Version:      config.GetVersion(),
		SilenceUsage: true,
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage annotators",
	}

	var registerCmd = &cobra.Command{
		Use:   "register <name>",
		Short: "Register a new annotator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerUser(args[0])
		},
	}

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List annotators, most active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers()
		},
	}

	var progressCmd = &cobra.Command{
		Use:   "progress <username>",
		Short: "Show the overall progress of an annotator",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showProgress(args[0])
		},
	}

	var scenariosCmd = &cobra.Command{
		Use:   "scenarios [username]",
		Short: "List the scenarios of the dataset, with the annotation status of a user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			return listScenarios(username)
		},
	}

	userCmd.AddCommand(registerCmd, listCmd)

	rootCmd.AddCommand(runCmd, userCmd, progressCmd, scenariosCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
