package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type registrarFunc func(rg *gin.RouterGroup)

func (f registrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.api)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/releases/:id", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("id"))
		})
	}))
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/releases/abc", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())
}

func TestRouterRegisterRoot(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.RegisterRoot(registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/system/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}))
	r.Setup()

	// Root registrars are mounted outside the API prefix
	req := httptest.NewRequest("GET", "/system/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	req = httptest.NewRequest("GET", "/api/v1/system/ping", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterChainedRegistration(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/a", func(c *gin.Context) { c.String(http.StatusOK, "a") })
	})).Register(registrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/b", func(c *gin.Context) { c.String(http.StatusOK, "b") })
	})).Setup()

	for _, path := range []string{"/api/v1/a", "/api/v1/b"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "route %s should be registered", path)
	}
}
