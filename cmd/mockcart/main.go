// Command mockcart runs the development fake of the remote cart service
// with a small seeded catalog.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/cartsync/internal/infrastructure/logger"
	"github.com/storefront/cartsync/internal/interfaces/mockcart"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	server := mockcart.NewServer(log)
	seedCatalog(server)

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("mock cart service listening", zap.String("addr", *addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

// seedCatalog installs a handful of products to click around with
func seedCatalog(server *mockcart.Server) {
	server.AddProduct(mockcart.Product{
		ID: 10, Name: "Classic Tee", Image: "/img/classic-tee.jpg",
		Price: decimal.NewFromInt(50000), Stock: 25, WeightGrams: 200, Active: true,
	})
	server.AddProduct(mockcart.Product{
		ID: 11, Name: "Denim Jacket", Image: "/img/denim-jacket.jpg",
		Price: decimal.NewFromInt(350000), Stock: 8, WeightGrams: 900, Active: true,
	})
	server.AddProduct(mockcart.Product{
		ID: 12, Name: "Canvas Sneakers", Image: "/img/canvas-sneakers.jpg",
		Price: decimal.NewFromInt(275000), Stock: 12, WeightGrams: 700, Active: true,
	})
}
