package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/content/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ContentTools expone al operador las acciones principales del pipeline
type ContentTools struct {
	items      *application.ItemService
	scheduler  *application.CycleScheduler
	publisher  *application.PublishOrchestrator
	reconciler *application.Reconciler
}

func NewContentTools(items *application.ItemService, scheduler *application.CycleScheduler, publisher *application.PublishOrchestrator, reconciler *application.Reconciler) *ContentTools {
	return &ContentTools{items: items, scheduler: scheduler, publisher: publisher, reconciler: reconciler}
}

func (h *ContentTools) AddTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolProduceNow(), h.handleProduceNow)
	mcpServer.AddTool(h.toolReconcileItem(), h.handleReconcileItem)
	mcpServer.AddTool(h.toolPublishItem(), h.handlePublishItem)
	mcpServer.AddTool(h.toolListItems(), h.handleListItems)
}

func (h *ContentTools) toolProduceNow() mcp.Tool {
	return mcp.NewTool(
		"produce_now",
		mcp.WithDescription("Create and generate one content item for a client right now, ignoring its schedule."),
		mcp.WithTitleAnnotation("Produce Now"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("client_id",
			mcp.Description("ID of the client to produce content for."),
			mcp.Required(),
		),
	)
}

func (h *ContentTools) handleProduceNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clientID, err := request.RequireString("client_id")
	if err != nil {
		return nil, err
	}
	item, err := h.scheduler.ProduceNow(ctx, clientID)
	if item == nil {
		return nil, err
	}
	fallback := fmt.Sprintf("Item %s created for %q, status %s", item.ID, item.Question, item.Status)
	if err != nil {
		fallback += " (" + err.Error() + ")"
	}
	return mcp.NewToolResultStructured(item, fallback), nil
}

func (h *ContentTools) toolReconcileItem() mcp.Tool {
	return mcp.NewTool(
		"reconcile_item",
		mcp.WithDescription("Pull the state of every in-flight media job and social post of an item from the external systems."),
		mcp.WithTitleAnnotation("Reconcile Item"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("item_id",
			mcp.Description("ID of the content item."),
			mcp.Required(),
		),
	)
}

func (h *ContentTools) handleReconcileItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return nil, err
	}
	report, err := h.reconciler.Reconcile(ctx, itemID)
	if err != nil {
		return nil, err
	}
	fallback := fmt.Sprintf("%d advanced, %d still processing, %d failed", report.Advanced, report.StillProcessing, report.Failed)
	return mcp.NewToolResultStructured(report, fallback), nil
}

func (h *ContentTools) toolPublishItem() mcp.Tool {
	return mcp.NewTool(
		"publish_item",
		mcp.WithDescription("Publish a reviewed content item to the given channels. Each channel reports its own outcome."),
		mcp.WithTitleAnnotation("Publish Item"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithString("item_id",
			mcp.Description("ID of the content item."),
			mcp.Required(),
		),
		mcp.WithString("channels",
			mcp.Description("Comma-separated channels: article, directory_article, podcast, short_video, client_social, directory_social."),
			mcp.Required(),
		),
		mcp.WithBoolean("post_immediate",
			mcp.Description("Post social updates now instead of at the client's next slot."),
		),
	)
}

func (h *ContentTools) handlePublishItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID, err := request.RequireString("item_id")
	if err != nil {
		return nil, err
	}
	raw, err := request.RequireString("channels")
	if err != nil {
		return nil, err
	}
	channels, err := domain.ParseChannels(splitList(raw))
	if err != nil {
		return nil, err
	}

	opts := domain.PublishOptions{}
	if v, ok := request.GetArguments()["post_immediate"]; ok {
		if opts.PostImmediate, err = toBool(v); err != nil {
			return nil, err
		}
	}

	results, err := h.publisher.Publish(ctx, itemID, channels, opts)
	if err != nil {
		return nil, err
	}
	fallback := "Published all channels"
	if failed := results.Err(); failed != nil {
		fallback = "Some channels failed: " + failed.Error()
	}
	return mcp.NewToolResultStructured(results.Map(), fallback), nil
}

func (h *ContentTools) toolListItems() mcp.Tool {
	return mcp.NewTool(
		"list_items",
		mcp.WithDescription("List content items, newest first, optionally filtered by client and status."),
		mcp.WithTitleAnnotation("List Items"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("client_id", mcp.Description("Only items of this client.")),
		mcp.WithString("status", mcp.Description("DRAFT, GENERATING, REVIEW, PUBLISHED or FAILED.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 50).")),
	)
}

func (h *ContentTools) handleListItems(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domain.ItemFilter{
		ClientID: request.GetString("client_id", ""),
		Status:   domain.ItemStatus(strings.ToUpper(request.GetString("status", ""))),
		Limit:    request.GetInt("limit", 50),
	}
	items, err := h.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultStructured(items, fmt.Sprintf("Found %d items", len(items))), nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("unable to parse boolean value %q", v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported boolean value type %T", value)
	}
}
