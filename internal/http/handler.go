package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"quillpad/internal/auth"
	"quillpad/internal/domain"
	"quillpad/internal/metrics"
	"quillpad/internal/service"
)

const (
	ctxPrincipal = "principal"
	ctxUser      = "user"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Users         service.UserService
	Posts         service.PostService
	Tasks         service.TaskService
	Sessions      *auth.SessionManager
	Tokens        *auth.TokenIssuer
	Metrics       *metrics.Metrics
	Logger        *logrus.Logger
	SecureCookies bool
	CoversEnabled bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users         service.UserService
	posts         service.PostService
	tasks         service.TaskService
	sessions      *auth.SessionManager
	tokens        *auth.TokenIssuer
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	secureCookies bool
	coversEnabled bool
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Handler{
		users:         deps.Users,
		posts:         deps.Posts,
		tasks:         deps.Tasks,
		sessions:      deps.Sessions,
		tokens:        deps.Tokens,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		secureCookies: deps.SecureCookies,
		coversEnabled: deps.CoversEnabled,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(loadTemplates())
	router.Use(h.requestLogger())
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.render(c, http.StatusNotFound, "not_found", gin.H{"title": "Not found"})
	})

	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	web := router.Group("/", h.loadSession())
	{
		web.GET("/", h.index)
		web.GET("/post/:id", h.showPost)
		web.POST("/post/:id", h.addComment)
		web.GET("/register", h.registerForm)
		web.POST("/register", h.register)
		web.GET("/login", h.loginForm)
		web.POST("/login", h.login)
		web.GET("/logout", h.logout)
		web.GET("/search", h.search)

		members := web.Group("/", h.requireLogin())
		members.GET("/create_post", h.createPostForm)
		members.POST("/create_post", h.createPost)
		members.GET("/tasks", h.listTasksPage)
		members.GET("/tasks/create", h.createTaskForm)
		members.POST("/tasks/create", h.createTaskPage)
		members.POST("/tasks/delete/:id", h.deleteTaskPage)
		members.POST("/tasks/toggle_complete/:id", h.toggleTaskPage)
	}

	api := router.Group("/api", corsMiddleware())
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.POST("/login", h.apiLogin)

		tasks := api.Group("/tasks", h.requireToken())
		tasks.GET("", h.apiListTasks)
		tasks.POST("", h.apiCreateTask)
		tasks.GET("/:id", h.apiGetTask)
		tasks.PUT("/:id", h.apiUpdateTask)
		tasks.DELETE("/:id", h.apiDeleteTask)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		h.metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, latency)

		entry := h.logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"client_ip": c.ClientIP(),
			"latency":   latency.String(),
		})
		if p, ok := currentPrincipal(c); ok {
			entry = entry.WithField("user_id", p.UserID)
		}
		if status >= http.StatusInternalServerError {
			entry.Error("http request")
			return
		}
		entry.Info("http request")
	}
}

// loadSession resolves the session cookie, if any, to a principal. Requests
// without a valid session continue anonymously.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(h.sessions.CookieName())
		if err != nil || value == "" {
			c.Next()
			return
		}

		user, _, err := h.sessions.Resolve(c.Request.Context(), value)
		if err != nil {
			if !errors.Is(err, auth.ErrNoSession) && !errors.Is(err, auth.ErrSessionExpired) {
				h.logger.WithError(err).Error("resolve session")
			}
			http.SetCookie(c.Writer, h.sessions.ClearCookie())
			c.Next()
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxPrincipal, auth.Principal{
			UserID:   user.ID,
			Username: user.Username,
			Method:   auth.MethodSession,
		})
		c.Next()
	}
}

// requireLogin sends anonymous browsers to the login page.
func (h *Handler) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentPrincipal(c); ok {
			c.Next()
			return
		}
		target := "/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		h.redirectWithFlash(c, target, "Please log in to access this page.")
		c.Abort()
	}
}

// requireToken rejects API requests without a valid bearer token before any
// handler runs.
func (h *Handler) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			h.rejectToken(c, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			h.rejectToken(c, "invalid authorization header")
			return
		}

		userID, err := h.tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			h.logger.WithField("client_ip", c.ClientIP()).Warnf("reject bearer token: %v", err)
			h.rejectToken(c, "invalid token")
			return
		}

		c.Set(ctxPrincipal, auth.Principal{UserID: userID, Method: auth.MethodToken})
		c.Next()
	}
}

func (h *Handler) rejectToken(c *gin.Context, message string) {
	h.metrics.TokenRejects.Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	if !ok || p.UserID <= 0 {
		return auth.Principal{}, false
	}
	return p, true
}

func currentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}
