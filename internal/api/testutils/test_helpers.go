package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hkhalid/estatechain-server/internal/api"
	"github.com/hkhalid/estatechain-server/internal/ledger"
	"github.com/hkhalid/estatechain-server/internal/repository"
	"github.com/hkhalid/estatechain-server/internal/service"
)

// Compile-time checks that the fakes satisfy the real interfaces.
var (
	_ repository.Repository = (*MemoryRepository)(nil)
	_ ledger.Client         = (*FakeLedger)(nil)
)

// Well-known wallets for tests. AdminWallet is the contract owner.
const (
	AdminWallet = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	UserWallet  = "0xaa95e15259cdbc0a90aab5a9fd6f4ce6ab88aabb"
	OtherWallet = "0xbb627279cff7279cfffb92266fb92266ab88ccdd"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router  *gin.Engine
	Repo    *MemoryRepository
	Ledger  *FakeLedger
	Service service.Service
}

// SetupTestContext builds a full router over in-memory fakes.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	repo := NewMemoryRepository()
	fakeLedger := NewFakeLedger(AdminWallet)
	svc := service.NewDefaultService(repo, fakeLedger, testJWTSecret)
	handler := api.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	return &TestContext{
		Router:  router,
		Repo:    repo,
		Ledger:  fakeLedger,
		Service: svc,
	}
}

// Token issues a signed JWT for an arbitrary wallet, the way Login does.
func Token(t *testing.T, wallet string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    uuid.New().String(),
		"wallet": wallet,
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
		"iat":    time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
