package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/socialgenius/browserauth/internal/agent"
	"github.com/socialgenius/browserauth/internal/bootstrap"
	"github.com/socialgenius/browserauth/internal/conf"
	"github.com/socialgenius/browserauth/internal/executor"
	"github.com/socialgenius/browserauth/internal/session"
	"github.com/socialgenius/browserauth/internal/task"
	"github.com/socialgenius/browserauth/server"
	"github.com/socialgenius/browserauth/server/handles"
)

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	RootCmd.AddCommand(ServerCmd)
}

func serve() {
	cfg, err := conf.Load()
	if err != nil {
		log.Fatalf("config error: %+v", err)
	}
	bootstrap.InitLog(cfg)
	if err := bootstrap.InitDB(cfg); err != nil {
		log.Fatalf("database error: %+v", err)
	}

	tasks := task.NewStore(cfg.TaskRetention)
	sessions := session.NewStore(cfg.SessionMaxAge)
	remote := agent.NewRemote(cfg.AgentURL)
	exec := executor.New(cfg, tasks, sessions, remote, remote)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	server.Init(r, cfg, handles.New(cfg, tasks, sessions, exec))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Infof("starting browser-use api server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %+v", err)
	}
}
