// Package apitest is an in-process stand-in for the QueryDesk backend,
// serving the same routes and {code, message, data} envelope so client
// tests exercise real HTTP round trips.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"querydesk/internal/apis/dtos"
	"querydesk/internal/models"
)

const signingSecret = "apitest-secret"

// ListGate lets a test hold an owned-list request open: the handler
// closes Entered on arrival and waits for Release. It applies to the
// next owned-list request only.
type ListGate struct {
	Entered chan struct{}
	Release chan struct{}
}

type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	users       map[string]string // username -> password
	tokens      map[string]string // token -> username
	owned       []models.DataSource
	shared      []models.DataSource
	owners      map[string][]models.Owner
	suggestions []string
	schema      *models.Schema
	queryRes    dtos.QueryResponse
	nextID      int
	listGate    *ListGate

	lastCreateBody []byte
	addOwnerCalls  int
}

func NewServer() *Server {
	s := &Server{
		users:  make(map[string]string),
		tokens: make(map[string]string),
		owners: make(map[string][]models.Owner),
		nextID: 1,
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	s.routes(router)
	s.srv = httptest.NewServer(router)
	return s
}

func (s *Server) URL() string { return s.srv.URL }
func (s *Server) Close()      { s.srv.Close() }

func (s *Server) routes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/register", s.register)
	v1.GET("/users/check-username/:username", s.checkUsername)

	protected := v1.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.GET("/users/me", s.me)
		protected.GET("/data-sources/owned", s.listOwned)
		protected.GET("/data-sources/available", s.listAvailable)
		protected.POST("/data-sources", s.createDataSource)
		protected.GET("/data-sources/:id", s.getDataSource)
		protected.PUT("/data-sources/:id", s.updateDataSource)
		protected.DELETE("/data-sources/:id", s.deleteDataSource)
		protected.GET("/data-sources/:id/owners", s.listOwners)
		protected.POST("/data-sources/:id/owners", s.addOwner)
		protected.DELETE("/data-sources/:id/owners/:ownerId", s.removeOwner)
		protected.GET("/chat/suggestions/:id", s.listSuggestions)
		protected.POST("/data-sources/:id/query", s.query)
	}

	router.POST("/db/connect", s.connect)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "", "data": data})
}

func fail(c *gin.Context, status, code int, message string) {
	c.JSON(status, gin.H{"code": code, "message": message})
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) {
			fail(c, http.StatusUnauthorized, 401, "missing token")
			c.Abort()
			return
		}
		s.mu.Lock()
		username, okToken := s.tokens[header[len(prefix):]]
		s.mu.Unlock()
		if !okToken {
			fail(c, http.StatusUnauthorized, 401, "invalid token")
			c.Abort()
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	var req dtos.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	password, exists := s.users[req.Username]
	if !exists || password != req.Password {
		fail(c, http.StatusUnauthorized, 401, "invalid credentials")
		return
	}

	token := s.issueTokenLocked(req.Username, time.Hour)
	ok(c, dtos.LoginResponse{Token: token})
}

// issueTokenLocked signs a real JWT so the client's expiry check sees a
// well-formed token.
func (s *Server) issueTokenLocked(username string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id": username,
		"iat":     time.Now().Unix(),
		"iss":     "querydesk-apitest",
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(signingSecret))
	if err != nil {
		panic(fmt.Sprintf("apitest: failed to sign token: %v", err))
	}
	s.tokens[signed] = username
	return signed
}

func (s *Server) register(c *gin.Context) {
	var req dtos.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		fail(c, http.StatusConflict, 1001, "username already taken")
		return
	}
	s.users[req.Username] = req.Password
	ok(c, nil)
}

func (s *Server) checkUsername(c *gin.Context) {
	s.mu.Lock()
	_, exists := s.users[c.Param("username")]
	s.mu.Unlock()
	ok(c, dtos.CheckUsernameResponse{Exists: exists})
}

func (s *Server) me(c *gin.Context) {
	username := c.GetString("username")
	ok(c, models.User{ID: "user-" + username, Username: username})
}

func (s *Server) listOwned(c *gin.Context) {
	s.mu.Lock()
	gate := s.listGate
	s.listGate = nil
	sources := append([]models.DataSource(nil), s.owned...)
	s.mu.Unlock()

	// A gated request replies with the snapshot taken at entry, so
	// mutations made while it is held open are not reflected.
	if gate != nil {
		close(gate.Entered)
		<-gate.Release
	}
	ok(c, sources)
}

func (s *Server) listAvailable(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Shared sources expose only id, type and name.
	stripped := make([]models.DataSource, 0, len(s.shared))
	for _, src := range s.shared {
		stripped = append(stripped, models.DataSource{ID: src.ID, Name: src.Name, DatabaseType: src.DatabaseType})
	}
	ok(c, stripped)
}

func (s *Server) createDataSource(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	s.mu.Lock()
	s.lastCreateBody = body
	s.mu.Unlock()

	var req dtos.CreateDataSourceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created := models.DataSource{
		ID:               fmt.Sprintf("ds-%d", s.nextID),
		Name:             req.Name,
		DatabaseType:     req.DatabaseType,
		Host:             req.Host,
		Port:             strconv.Itoa(req.Port),
		DatabaseName:     req.DatabaseName,
		Username:         req.Username,
		Password:         req.Password,
		TableDefinitions: req.TableDefinitions,
	}
	s.nextID++
	s.owned = append(s.owned, created)
	ok(c, created)
}

func (s *Server) findLocked(id string) (*models.DataSource, bool) {
	for i := range s.owned {
		if s.owned[i].ID == id {
			return &s.owned[i], true
		}
	}
	for i := range s.shared {
		if s.shared[i].ID == id {
			return &s.shared[i], true
		}
	}
	return nil, false
}

func (s *Server) getDataSource(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, found := s.findLocked(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, 404, "data source not found")
		return
	}
	ok(c, *src)
}

func (s *Server) updateDataSource(c *gin.Context) {
	var req dtos.UpdateDataSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	src, found := s.findLocked(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, 404, "data source not found")
		return
	}
	src.Name = req.Name
	src.DatabaseType = req.DatabaseType
	src.Host = req.Host
	src.Port = strconv.Itoa(req.Port)
	src.DatabaseName = req.DatabaseName
	src.Username = req.Username
	src.Password = req.Password
	src.TableDefinitions = req.TableDefinitions
	ok(c, *src)
}

func (s *Server) deleteDataSource(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.findLocked(id); !found {
		fail(c, http.StatusNotFound, 404, "data source not found")
		return
	}
	s.owned = withoutSource(s.owned, id)
	s.shared = withoutSource(s.shared, id)
	delete(s.owners, id)
	ok(c, nil)
}

func withoutSource(sources []models.DataSource, id string) []models.DataSource {
	out := sources[:0]
	for _, src := range sources {
		if src.ID != id {
			out = append(out, src)
		}
	}
	return out
}

func (s *Server) listOwners(c *gin.Context) {
	s.mu.Lock()
	owners := append([]models.Owner(nil), s.owners[c.Param("id")]...)
	s.mu.Unlock()
	ok(c, owners)
}

func (s *Server) addOwner(c *gin.Context) {
	s.mu.Lock()
	s.addOwnerCalls++
	s.mu.Unlock()

	var req dtos.AddOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	owner := models.Owner{ID: int64(len(s.owners[id]) + 1), Username: req.Username}
	s.owners[id] = append(s.owners[id], owner)
	ok(c, owner)
}

func (s *Server) removeOwner(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("ownerId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "invalid owner id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	out := s.owners[id][:0]
	for _, owner := range s.owners[id] {
		if owner.ID != ownerID {
			out = append(out, owner)
		}
	}
	s.owners[id] = out
	ok(c, nil)
}

func (s *Server) listSuggestions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, dtos.SuggestionsResponse{Suggestions: s.suggestions})
}

func (s *Server) query(c *gin.Context) {
	var req dtos.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok(c, s.queryRes)
}

func (s *Server) connect(c *gin.Context) {
	var req dtos.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema == nil {
		fail(c, http.StatusBadGateway, 2001, "could not reach database")
		return
	}
	ok(c, s.schema)
}

// Test hooks.

func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IssueToken returns a signed token for the user, with the given ttl.
// A negative ttl produces an already expired token that the server
// still recognizes, for restore tests.
func (s *Server) IssueToken(username string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(username, ttl)
}

func (s *Server) SetOwned(sources []models.DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned = append([]models.DataSource(nil), sources...)
}

func (s *Server) SetShared(sources []models.DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = append([]models.DataSource(nil), sources...)
}

func (s *Server) SetOwners(sourceID string, owners []models.Owner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[sourceID] = append([]models.Owner(nil), owners...)
}

func (s *Server) SetSuggestions(suggestions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = suggestions
}

func (s *Server) SetSchema(schema *models.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = schema
}

func (s *Server) SetQueryResponse(res dtos.QueryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryRes = res
}

// SetListGate arms the gate for the next owned-list request.
func (s *Server) SetListGate(gate *ListGate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listGate = gate
}

// LastCreateBody returns the raw JSON of the most recent create call.
func (s *Server) LastCreateBody() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastCreateBody...)
}

// AddOwnerCalls counts how many add-owner requests reached the server.
func (s *Server) AddOwnerCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addOwnerCalls
}
