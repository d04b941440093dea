package service_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mocksrv/internal/adapters/repository"
	service "github.com/okian/mocksrv/internal/app"
	"github.com/okian/mocksrv/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func localService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithAPIAddr("127.0.0.1:0"),
		service.WithControlAddr("127.0.0.1:0"),
		service.WithShutdownTimeout(2 * time.Second),
	}
	return service.New(append(base, opts...)...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report the default addresses", func() {
			So(svc.APIAddr(), ShouldEqual, ":9999")
			So(svc.ControlAddr(), ShouldEqual, ":9998")
		})

		Convey("Then stats show it stopped with an instance id", func() {
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldEqual, false)
			So(stats["instance"], ShouldNotBeEmpty)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service on ephemeral ports", t, func() {
		svc := localService()
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should report bound addresses", func() {
				So(svc.APIAddr(), ShouldNotEndWith, ":0")
				So(svc.ControlAddr(), ShouldNotEndWith, ":0")
				So(svc.APIAddr(), ShouldNotEqual, svc.ControlAddr())
			})

			Convey("And stats should describe it", func() {
				stats := svc.GetStats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["store"], ShouldEqual, repository.BackendMemory)
				So(stats["endpoints"], ShouldEqual, 24)
				So(stats["storedResponses"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given an injected store", t, func() {
		store := repository.NewMemoryStore(repository.WithInitial(map[string]string{"tickers": `[]`}))
		svc := localService(service.WithStore(store))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("When the service stops", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then the store is left open for its owner", func() {
				n, err := store.Count(context.Background())
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(svc.GetStats(context.Background())["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a port already in use", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		defer ln.Close()

		svc := localService(service.WithAPIAddr(ln.Addr().String()))
		err = svc.Start(context.Background())

		Convey("Then Start fails with a listen error", func() {
			So(errors.Is(err, service.ErrListen), ShouldBeTrue)
			So(svc.GetStats(context.Background())["started"], ShouldEqual, false)
		})
	})

	Convey("Given an unknown store backend", t, func() {
		svc := localService(service.WithStoreSettings(repository.Settings{Backend: "etcd"}))
		err := svc.Start(context.Background())

		Convey("Then Start fails", func() {
			So(errors.Is(err, service.ErrStart), ShouldBeTrue)
			So(errors.Is(err, repository.ErrUnknownBackend), ShouldBeTrue)
		})
	})
}
