package main

import (
	"net/http"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/Luismorlan/socialmux/feed"
	"github.com/Luismorlan/socialmux/server"
	"github.com/Luismorlan/socialmux/server/middlewares"
	"github.com/Luismorlan/socialmux/store"
	"github.com/Luismorlan/socialmux/utils"
	"github.com/Luismorlan/socialmux/utils/dotenv"
	. "github.com/Luismorlan/socialmux/utils/flag"
	. "github.com/Luismorlan/socialmux/utils/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	Log.Info("feed api server initialized")
}

func cleanup() {
	utils.CloseProfiler()
	utils.CloseTracer()
	Log.Info("feed api server shutdown")
}

func newDogStatsdClient() *statsd.Client {
	client, err := statsd.New("127.0.0.1:8125")
	if err != nil {
		Log.Warn("fail to create statsd client, metrics disabled: ", err)
		return nil
	}
	return client
}

func main() {
	Parse()
	defer cleanup()

	utils.StartProfiler()
	utils.StartTracer()

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect to DB: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	bus := store.NewEngagementBus()
	defer bus.Close()

	cache := store.NewUserCache(utils.GetRedisClient())
	feedStore := store.NewGormStore(db, bus, cache)

	metrics := feed.NewMetrics(newDogStatsdClient())
	sessions := server.NewSessions(feedStore, feed.DefaultEngineConfig(), metrics)
	defer sessions.Shutdown()

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()

	router.Use(cors.Default())
	router.Use(gintrace.Middleware(ServiceName))
	if !ByPassAuth {
		router.Use(middlewares.RequireViewer())
	}

	server.RegisterRoutes(router, sessions)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	Log.Info("feed api server starts up")
	router.Run(":8080")
}
