package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	contentMcp "github.com/AzielCF/az-localseo/content/adapter/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the content MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server over Server-Sent Events so AI agents can produce, list, publish and reconcile content items.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("host", "", "Host for the SSE MCP server")
	mcpCmd.Flags().String("mcp-port", "", "Port for the SSE MCP server")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	host, port := cfg.MCP.Host, cfg.MCP.Port
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}
	if v, _ := cmd.Flags().GetString("mcp-port"); v != "" {
		port = v
	}

	mcpServer := server.NewMCPServer(
		"LocalSEO Content MCP Server",
		cfg.App.Version,
		server.WithToolCapabilities(true),
	)
	contentMcp.NewContentTools(itemService, scheduler, publisher, reconciler).AddTools(mcpServer)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s:%s", host, port)),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", host, port)
	logrus.Printf("Starting content MCP SSE server on %s", addr)
	logrus.Printf("SSE endpoint: http://%s/sse", addr)
	logrus.Printf("Message endpoint: http://%s/message", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		StopApp()
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
