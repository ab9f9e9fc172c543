// Package web provides the annotator's web server: routing, templates, static assets,
// sessions and the maintenance jobs.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"scenario-annotator/config"
	"scenario-annotator/logger"
	"scenario-annotator/util/common"
	"scenario-annotator/util/random"
	"scenario-annotator/web/controller"
	"scenario-annotator/web/job"
	"scenario-annotator/web/locale"
	"scenario-annotator/web/middleware"
	"scenario-annotator/web/network"
	"scenario-annotator/web/service"
	"scenario-annotator/web/session"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

//go:embed assets
var assetsFS embed.FS

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

var startTime = time.Now()

type wrapAssetsFS struct {
	embed.FS
}

func (f *wrapAssetsFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open("assets/" + name)
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFile{File: file}, nil
}

type wrapAssetsFile struct {
	fs.File
}

func (f *wrapAssetsFile) Stat() (fs.FileInfo, error) {
	info, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFileInfo{FileInfo: info}, nil
}

// Embedded files carry no modification time; report the process start instead so
// browsers can revalidate.
type wrapAssetsFileInfo struct {
	fs.FileInfo
}

func (f *wrapAssetsFileInfo) ModTime() time.Time {
	return startTime
}

// Server is the annotator web server with its controllers, services and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index *controller.IndexController
	api   *controller.APIController
	media *controller.MediaController

	userService       *service.UserService
	scenarioService   *service.ScenarioService
	annotationService *service.AnnotationService
	statusService     *service.StatusService

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the services on top of the user registry, the read-only dataset root
// and the folder holding per-user annotations.
func NewServer(registry service.Registry, datasetRoot, dataRoot string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	scenarios := service.NewScenarioService(datasetRoot)
	annotations := service.NewAnnotationService(dataRoot)
	return &Server{
		userService:       service.NewUserService(registry, dataRoot),
		scenarioService:   scenarios,
		annotationService: annotations,
		statusService:     service.NewStatusService(scenarios, annotations),
		ctx:               ctx,
		cancel:            cancel,
	}
}

// getHtmlFiles lists the templates under web/html of the working directory. Used only in
// debug mode so templates can be edited without a rebuild.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	err := fs.WalkDir(os.DirFS("."), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".html") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Server) getHtmlTemplate() (*template.Template, error) {
	return template.New("").ParseFS(htmlFS, "html/*.html")
}

func sessionSecret() []byte {
	secret := config.GetSessionSecret()
	if secret == "" {
		logger.Warning("ANNOTATOR_SESSION_SECRET is not set, sessions will not survive a restart")
		secret = random.Seq(32)
	}
	return []byte(secret)
}

// initRouter initializes Gin, registers middleware, templates, static assets and
// controllers and returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()

	if err := locale.InitLocalizer(i18nFS, "translation"); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestIDMiddleware())
	if webDomain := config.GetWebDomain(); webDomain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(webDomain))
	}
	// images and GIFs are already compressed
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/media/"}),
	))
	engine.Use(session.Middleware(sessionSecret(), config.GetSessionMaxAge()*60))
	engine.Use(locale.LocalizerMiddleware())

	if config.IsDebug() {
		files, err := s.getHtmlFiles()
		if err != nil {
			return nil, err
		}
		engine.LoadHTMLFiles(files...)
		engine.StaticFS("/assets", http.FS(os.DirFS("web/assets")))
	} else {
		tpl, err := s.getHtmlTemplate()
		if err != nil {
			return nil, err
		}
		engine.SetHTMLTemplate(tpl)
		engine.StaticFS("/assets", http.FS(&wrapAssetsFS{FS: assetsFS}))
	}

	g := &engine.RouterGroup
	s.index = controller.NewIndexController(g, s.userService)
	s.api = controller.NewAPIController(g, s.userService, s.annotationService, s.statusService)
	s.media = controller.NewMediaController(g, s.scenarioService)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// startTask schedules the maintenance jobs. A spec of "off" disables a job.
func (s *Server) startTask() {
	jobs := []struct {
		spec string
		job  cron.Job
	}{
		{config.GetLogRotateSpec(), job.NewClearLogsJob(logger.GetLogFilePath(config.GetLogFolder()))},
		{config.GetDatasetCheckSpec(), job.NewCheckDatasetJob(s.scenarioService)},
	}
	for _, j := range jobs {
		if j.spec == "off" {
			continue
		}
		if _, err := s.cron.AddJob(j.spec, j.job); err != nil {
			logger.Warningf("invalid cron spec %q: %v", j.spec, err)
		}
	}
	// report the dataset state right away
	go job.NewCheckDatasetJob(s.scenarioService).Run()
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	// a run still in progress makes the next tick of the same job a no-op
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	certFile, keyFile := config.GetCertFile(), config.GetKeyFile()
	if certFile != "" || keyFile != "" {
		if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
			cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
			listener = network.NewHTTPSRedirectListener(listener)
			listener = tls.NewListener(listener, cfg)
			logger.Info("Web server running HTTPS on", listener.Addr())
		} else {
			logger.Error("Error loading certificates:", err)
			logger.Info("Web server running HTTP on", listener.Addr())
		}
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	s.startTask()

	return nil
}

// Stop shuts the HTTP server down gracefully and stops the scheduled jobs.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
		if errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	return common.Combine(err1, err2)
}
