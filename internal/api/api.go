package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"campus/internal/account"
	"campus/internal/auth"
	"campus/internal/event"
	"campus/internal/httpmiddleware"
	"campus/internal/media"
	"campus/internal/notice"
	"campus/internal/notify"
	"campus/internal/routine"
)

// Accounts covers the self-service account flows.
type Accounts interface {
	Register(ctx context.Context, in account.Registration) (*account.Registered, error)
	Login(ctx context.Context, in account.Credentials) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, userID int64) (*account.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, in account.ProfileUpdate) (*account.Profile, error)
}

// Admin covers the staff-only user, group and roster areas.
type Admin interface {
	ListUsers(ctx context.Context) ([]account.User, error)
	GetUser(ctx context.Context, id int64) (*account.User, error)
	CreateUser(ctx context.Context, in account.NewUser) (*account.User, error)
	UpdateUser(ctx context.Context, id int64, in account.UserUpdate) (*account.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListGroups(ctx context.Context) ([]account.Group, error)
	GetGroup(ctx context.Context, id int64) (*account.Group, error)
	CreateGroup(ctx context.Context, in account.GroupInput) (*account.Group, error)
	UpdateGroup(ctx context.Context, id int64, in account.GroupInput) (*account.Group, error)
	DeleteGroup(ctx context.Context, id int64) error

	ListAdmissions(ctx context.Context) ([]account.AdmissionRecord, error)
	GetAdmission(ctx context.Context, id int64) (*account.AdmissionRecord, error)
	CreateAdmission(ctx context.Context, in account.AdmissionInput) (*account.AdmissionRecord, error)
	UpdateAdmission(ctx context.Context, id int64, in account.AdmissionInput) (*account.AdmissionRecord, error)
	DeleteAdmission(ctx context.Context, id int64) error

	IsActiveStaff(ctx context.Context, userID int64) (bool, error)
}

type Notices interface {
	List(ctx context.Context, search string, limit, offset int) ([]notice.Notice, error)
	Get(ctx context.Context, id int64) (*notice.Notice, error)
	Create(ctx context.Context, authorID int64, in notice.Input) (*notice.Notice, error)
	Update(ctx context.Context, id int64, in notice.Input) (*notice.Notice, error)
	Patch(ctx context.Context, id int64, in notice.Patch) (*notice.Notice, error)
	Delete(ctx context.Context, id int64) error
}

type Routines interface {
	List(ctx context.Context, f routine.Filter) ([]routine.Routine, error)
	Get(ctx context.Context, id int64) (*routine.Routine, error)
	Create(ctx context.Context, in routine.Input) (*routine.Routine, error)
	Update(ctx context.Context, id int64, in routine.Input) (*routine.Routine, error)
	Patch(ctx context.Context, id int64, in routine.Patch) (*routine.Routine, error)
	Delete(ctx context.Context, id int64) error
}

type Events interface {
	List(ctx context.Context) ([]event.Event, error)
	Get(ctx context.Context, id int64) (*event.Event, error)
	Create(ctx context.Context, in event.Input) (*event.Event, error)
	Update(ctx context.Context, id int64, in event.Input) (*event.Event, error)
	Patch(ctx context.Context, id int64, in event.Patch) (*event.Event, error)
	Delete(ctx context.Context, id int64) error
}

type Devices interface {
	Register(ctx context.Context, userID int64, in notify.DeviceInput) (*notify.DeviceToken, error)
	Unregister(ctx context.Context, userID int64, token string) error
}

// ErrorReporter receives unexpected handler errors.
type ErrorReporter interface {
	Error(req *http.Request, err error, extras map[string]interface{})
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler serves the HTTP API.
type Handler struct {
	Accounts Accounts
	Admin    Admin
	Notices  Notices
	Routines Routines
	Events   Events
	Devices  Devices
	Media    media.Uploader
	Tokens   *auth.Tokens
	Reporter ErrorReporter

	Limiter        httpmiddleware.Limiter
	Metrics        *httpmiddleware.Metrics
	MetricsHandler http.Handler
	DBHealthy      HealthCheck
	RedisHealthy   HealthCheck
	AllowOrigins   []string
}

// Router builds the gin engine with every route and middleware.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.MaxMultipartMemory = media.MaxImageSize + 1<<20

	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog())
	if h.Metrics != nil {
		r.Use(h.Metrics.Handler())
	}
	r.Use(cors.New(h.corsConfig()))
	r.Use(securityHeaders())

	if h.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.MetricsHandler))
	}
	r.GET("/healthz", h.healthz)

	api := r.Group("/api")
	if h.Limiter != nil {
		api.Use(httpmiddleware.RateLimit(h.Limiter))
	}
	rt := routes{api}

	authenticated := auth.Authenticate(h.Tokens)
	admin := []gin.HandlerFunc{authenticated, auth.RequireStaff(h.Admin)}

	rt.handle(http.MethodGet, "", h.root)

	rt.handle(http.MethodPost, "/auth/register", h.register)
	rt.handle(http.MethodPost, "/auth/login", h.login)
	rt.handle(http.MethodPost, "/auth/logout", h.logout)
	rt.handle(http.MethodPost, "/auth/token/refresh", h.refresh)
	rt.handle(http.MethodGet, "/auth/profile", authenticated, h.getProfile)
	rt.handle(http.MethodPut, "/auth/profile", authenticated, h.updateProfile)
	rt.handle(http.MethodPatch, "/auth/profile", authenticated, h.updateProfile)
	rt.handle(http.MethodPost, "/auth/profile/image", authenticated, h.uploadProfileImage)

	rt.crud("/users", admin, admin, crudHandlers{h.listUsers, h.getUser, h.createUser, h.updateUser, h.updateUser, h.deleteUser})
	rt.crud("/groups", admin, admin, crudHandlers{h.listGroups, h.getGroup, h.createGroup, h.updateGroup, h.updateGroup, h.deleteGroup})
	rt.crud("/admissions", admin, admin, crudHandlers{h.listAdmissions, h.getAdmission, h.createAdmission, h.updateAdmission, h.patchAdmission, h.deleteAdmission})
	rt.crud("/notices", nil, admin, crudHandlers{h.listNotices, h.getNotice, h.createNotice, h.updateNotice, h.patchNotice, h.deleteNotice})
	rt.crud("/routines", nil, admin, crudHandlers{h.listRoutines, h.getRoutine, h.createRoutine, h.updateRoutine, h.patchRoutine, h.deleteRoutine})
	rt.crud("/events", nil, admin, crudHandlers{h.listEvents, h.getEvent, h.createEvent, h.updateEvent, h.patchEvent, h.deleteEvent})

	rt.handle(http.MethodPost, "/devices", authenticated, h.registerDevice)
	rt.handle(http.MethodDelete, "/devices", authenticated, h.unregisterDevice)

	return r
}

// routes registers every path with and without its trailing slash.
type routes struct {
	g *gin.RouterGroup
}

func (rt routes) handle(method, path string, handlers ...gin.HandlerFunc) {
	rt.g.Handle(method, path, handlers...)
	rt.g.Handle(method, path+"/", handlers...)
}

type crudHandlers struct {
	list, get, create, update, patch, delete gin.HandlerFunc
}

// crud wires a resource. read guards the safe methods and write guards the rest.
func (rt routes) crud(path string, read, write []gin.HandlerFunc, h crudHandlers) {
	with := func(guards []gin.HandlerFunc, fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guards...), fn)
	}
	rt.handle(http.MethodGet, path, with(read, h.list)...)
	rt.handle(http.MethodPost, path, with(write, h.create)...)
	rt.handle(http.MethodGet, path+"/:id", with(read, h.get)...)
	rt.handle(http.MethodPut, path+"/:id", with(write, h.update)...)
	rt.handle(http.MethodPatch, path+"/:id", with(write, h.patch)...)
	rt.handle(http.MethodDelete, path+"/:id", with(write, h.delete)...)
}

func (h *Handler) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(h.AllowOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = h.AllowOrigins
	}
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (h *Handler) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.DBHealthy != nil && h.DBHealthy(ctx)
	redisHealthy := h.RedisHealthy == nil || h.RedisHealthy(ctx)
	status, state := http.StatusOK, "ok"
	if !dbHealthy || !redisHealthy {
		status, state = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(status, gin.H{"status": state, "db": dbHealthy, "redis": redisHealthy})
}

func (h *Handler) root(c *gin.Context) {
	base := scheme(c) + "://" + c.Request.Host + "/api/"
	c.JSON(http.StatusOK, gin.H{
		"users":      base + "users/",
		"groups":     base + "groups/",
		"admissions": base + "admissions/",
		"notices":    base + "notices/",
		"routines":   base + "routines/",
		"events":     base + "events/",
		"devices":    base + "devices/",
		"auth": gin.H{
			"register":      base + "auth/register/",
			"login":         base + "auth/login/",
			"logout":        base + "auth/logout/",
			"token_refresh": base + "auth/token/refresh/",
			"profile":       base + "auth/profile/",
		},
	})
}

func scheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(proto)
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
