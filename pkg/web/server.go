package web

import (
	"context"
	"crypto/tls"
	"fmt"
	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"net/http"
	"rs485motor/cmd/motorctl/config"
	"rs485motor/cmd/motorctl/options"
	"rs485motor/pkg/generic"
	"rs485motor/pkg/host"
	"rs485motor/pkg/motor"
	"rs485motor/pkg/protocol/modbusrtu"
)

type Server struct {
	*generic.Server
	*config.Config
}

func NewServer(router *gin.Engine, o *options.Options, config *config.Config) (*Server, error) {
	allowMethods := []string{http.MethodPost, http.MethodGet, http.MethodPut}

	s := &generic.Server{
		Router:   router,
		Port:     o.Port,
		Methods:  allowMethods,
		CertFile: o.CertFile,
		KeyFile:  o.KeyFile,
	}

	server := &Server{
		Server: s,
		Config: config,
	}

	server.InstallHandlers()

	return server, nil
}

func (s *Server) InstallHandlers() {
	s.Router.Use(generic.AllowMethods(s.Methods...))
	v1 := s.Router.Group("/api/v1")
	motor.InstallHandler(v1, s.Config.Controller)
	modbusrtu.InstallHandler(v1, s.Config.Master)
	host.InstallHandler(v1)
}

// Serve starts listening in the background and returns the function that shuts the listener down.
func (s *Server) Serve() (func(ctx context.Context), error) {
	var srv *http.Server
	if len(s.CertFile) != 0 && len(s.KeyFile) != 0 {
		x509KeyPair, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
		if err != nil {
			return nil, err
		}
		c := &tls.Config{
			Certificates: []tls.Certificate{x509KeyPair},
		}

		srv = &http.Server{
			Addr:      fmt.Sprintf(":%s", s.Port),
			Handler:   s.Router,
			TLSConfig: c,
		}
		go func() {
			if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				klog.ErrorS(err, "HTTPS server stopped")
			}
		}()
	} else {
		srv = &http.Server{
			Addr:    fmt.Sprintf(":%s", s.Port),
			Handler: s.Router,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				klog.ErrorS(err, "HTTP server stopped")
			}
		}()
	}

	return func(ctx context.Context) {
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			klog.Error(err)
		}
	}, nil
}
