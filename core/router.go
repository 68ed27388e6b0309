package core

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine with routes wired.
// The two navigation targets /login and /home are selected by the
// authenticated flag; everything else is the JSON API the front-end
// calls into.
func NewRouter(cfg Config, store *sessions.CookieStore, state *AuthState, events AuthEventRepository, presence *PresenceStore) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	// Global middleware: origin/CORS -> session -> CSRF
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware(cfg, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Navigation targets. The root redirects to whichever page applies.
	r.GET("/", func(c *gin.Context) {
		if sessionUser(c) != "" {
			c.Redirect(http.StatusSeeOther, "/home")
			return
		}
		c.Redirect(http.StatusSeeOther, "/login")
	})

	r.GET("/login", func(c *gin.Context) {
		if sessionUser(c) != "" {
			c.Redirect(http.StatusSeeOther, "/home")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"page":  "login",
			"title": "サインイン",
			"form":  gin.H{"fields": []string{"username", "password"}, "submit": "/api/v1/auth/login"},
		})
	})

	r.GET("/home", func(c *gin.Context) {
		username := sessionUser(c)
		if username == "" {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"page":    "home",
			"title":   "ホーム",
			"welcome": username,
			"logout":  "/api/v1/auth/logout",
		})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.Username = strings.TrimSpace(req.Username)
			if req.Username == "" {
				// Shape check only; the password is intentionally not
				// validated anywhere.
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "username は必須です")
				return
			}

			// Suspends for the simulated latency, then always succeeds.
			user, err := state.Login(req.Username, req.Password)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "ユーザー名またはパスワードが違います。")
				return
			}

			session, err := store.Get(c.Request, sessionName)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
				return
			}

			// reset session values (simple rotation)
			session.Values = map[interface{}]interface{}{}
			session.Values["username"] = user.Username
			applySessionOptions(cfg, session)

			if err := session.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to set session")
				return
			}

			c.JSON(http.StatusOK, gin.H{"user": gin.H{
				"username": user.Username,
				"login_at": user.LoginAt,
			}})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			sessionAny, _ := c.Get("session")
			sess, _ := sessionAny.(*sessions.Session)
			if sess == nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
				return
			}

			// Safe when nobody is signed in; observers are still told.
			state.Logout()

			sess.Values = map[interface{}]interface{}{}
			applySessionOptions(cfg, sess)
			sess.Options.MaxAge = -1 // Must be set AFTER applySessionOptions to properly delete cookie
			if err := sess.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		api.GET("/auth/me", func(c *gin.Context) {
			username := sessionUser(c)
			if username == "" {
				c.JSON(http.StatusOK, gin.H{
					"username":      nil,
					"display_name":  cfg.GuestName,
					"authenticated": false,
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"username":      username,
				"display_name":  username,
				"authenticated": true,
			})
		})

		api.GET("/auth/events", func(c *gin.Context) {
			if _, ok := requireLogin(c); !ok {
				return
			}
			if events == nil {
				respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "audit trail is disabled")
				return
			}

			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			ctx := c.Request.Context()
			items, total, err := events.List(ctx, page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch events")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		api.GET("/presence", func(c *gin.Context) {
			if _, ok := requireLogin(c); !ok {
				return
			}
			if presence == nil {
				respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "presence is disabled")
				return
			}

			ctx := c.Request.Context()
			online, err := presence.Online(ctx)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch presence")
				return
			}
			recent, err := presence.RecentEvents(ctx, 20)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch recent events")
				return
			}
			c.JSON(http.StatusOK, gin.H{"online": online, "recent": recent})
		})

		api.GET("/status", func(c *gin.Context) {
			ctx := c.Request.Context()
			st, err := CollectSystemStatus(ctx, state, presence, startedAt)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load status")
				return
			}
			c.JSON(http.StatusOK, st)
		})
	}

	return r
}

// sessionUser returns the signed-in username stored in the session, or
// "" for anonymous visitors.
func sessionUser(c *gin.Context) string {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	if sess == nil {
		return ""
	}
	username, _ := sess.Values["username"].(string)
	return strings.TrimSpace(username)
}

func requireLogin(c *gin.Context) (string, bool) {
	username := sessionUser(c)
	if username == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "ログインが必要です。")
		return "", false
	}
	return username, true
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

var (
	errInvalidPage    = errors.New("page は 1 以上の整数で指定してください")
	errInvalidPerPage = errors.New("per_page は 1 以上の整数で指定してください")
)

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errInvalidPage
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errInvalidPerPage
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
