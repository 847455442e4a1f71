package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/config"
	"github.com/ariefcatur/go-shop-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: satu per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pCancel := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCancelled, 1024)
	pCancel.Start(ctx)

	// Repos & handlers
	router := httpx.NewRouter()
	ch := &httpx.CartHandler{
		Carts:   &shop.CartRepo{DB: db},
		Coupons: &shop.CouponRepo{DB: db},
	}
	ch.Register(router)
	co := &httpx.CheckoutHandler{
		Checkout: &shop.CheckoutRepo{DB: db},
		Orders:   &shop.OrderRepo{DB: db},
		Redis:    rdb,
		Producer: pCreated,
		Service:  cfg.ServiceName,
	}
	co.Register(router)
	oh := &httpx.OrdersHandler{
		Orders:         &shop.OrderRepo{DB: db},
		Redis:          rdb,
		ProducerStatus: pStatus,
		ProducerCancel: pCancel,
		Service:        cfg.ServiceName,
	}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Products: &shop.ProductRepo{DB: db}}
	ph.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// tutup inbox -> flush & close writer, lalu tunggu drain
	for _, p := range []*kafkax.Producer{pCreated, pStatus, pCancel} {
		p.Close()
		p.WaitClosed()
	}
}
