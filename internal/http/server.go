package http

import (
	_ "embed"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
	"gorm.io/gorm"

	"investment-ledger-go/internal/config"
	"investment-ledger-go/internal/ledger"
	"investment-ledger-go/internal/policy"
)

//go:embed transaction.schema.json
var transactionSchema string

type Server struct {
	cfg       *config.Config
	db        *gorm.DB
	svc       *ledger.Service
	engine    *policy.Engine
	validator *gojsonschema.Schema
}

func NewServer(cfg *config.Config, db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(logging())

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(transactionSchema))
	if err != nil {
		panic(err)
	}

	svc := ledger.NewService(db)
	s := &Server{
		cfg:       cfg,
		db:        db,
		svc:       svc,
		engine:    policy.NewEngine(svc),
		validator: schema,
	}

	// Auth
	r.POST("/v1/auth/register", s.authRegister)
	r.POST("/v1/auth/login", s.authLogin)

	// Protected Routes (User Token)
	authorized := r.Group("/v1")
	authorized.Use(AuthMiddleware(db))
	{
		authorized.GET("/accounts", s.listAccounts)
		authorized.POST("/accounts", s.createAccount)
		authorized.GET("/accounts/:id", s.getAccount)
		authorized.PATCH("/accounts/:id", s.updateAccount)
		authorized.DELETE("/accounts/:id", s.deleteAccount)

		authorized.POST("/memberships", s.createMembership)

		authorized.POST("/transactions", s.createTransaction)
		authorized.GET("/transactions", s.listTransactions)
		authorized.GET("/transactions/:id", s.getTransaction)
		authorized.PATCH("/transactions/:id", s.updateTransaction)
		authorized.DELETE("/transactions/:id", s.deleteTransaction)

		authorized.GET("/admin/transactions", s.adminTransactions)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	return r
}

func cors(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, PATCH, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
