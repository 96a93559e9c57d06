package server

import (
	"fmt"

	handlers "github.com/pranaysuyash/metaextract-sub011/pkg/handlers/http"
	"github.com/pranaysuyash/metaextract-sub011/pkg/infra/health"
	"github.com/pranaysuyash/metaextract-sub011/pkg/server/router"
)

type (
	EngineServerDI struct {
		HandlerTransport handlers.HandlerTransport
		Prober           *health.Prober
	}
	EngineServer struct {
		*BaseServer
		handlerTransport handlers.HandlerTransport
		prober           *health.Prober
	}
)

func NewEngineServer(base *BaseServer, di EngineServerDI) *EngineServer {
	return &EngineServer{
		BaseServer:       base,
		handlerTransport: di.HandlerTransport,
		prober:           di.Prober,
	}
}

func (s *EngineServer) Run() error {
	s.WithRouters(router.NewEngineRouter(s.handlerTransport))
	s.setupHealthCheck(s.prober)
	s.setupMetricsEndpoint()

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting engine server")
	return s.Router.Listen(addr)
}

func (s *EngineServer) Shutdown() error {
	return s.Router.Shutdown()
}
