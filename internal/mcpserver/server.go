package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"flipview/internal/database/relational"
	"flipview/internal/surface"
	"flipview/internal/viewer"
)

// Server exposes a viewer session as MCP tools, so an agent can page
// through a document the way a reader would.
type Server struct {
	mcpServer *mcp.Server
	log       *slog.Logger
	open      surface.OpenFunc
	repo      relational.ReadingRepository
	limit     int

	// The session has a single logical writer; every tool call holds mu.
	mu       sync.Mutex
	session  *viewer.Session
	provider viewer.PageSurfaceProvider
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
	FulfillLimit  int // Concurrent surface requests per tool call (default: 4)
}

// NewServer creates a new MCP server over session. repo may be nil, in
// which case reading_history reports that no log is configured.
func NewServer(cfg Config, session *viewer.Session, open surface.OpenFunc, repo relational.ReadingRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FulfillLimit <= 0 {
		cfg.FulfillLimit = 4
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		log:       logger,
		open:      open,
		repo:      repo,
		limit:     cfg.FulfillLimit,
		session:   session,
	}
	s.registerTools()
	return s
}

// EmptyArgs is the input of tools that take no arguments.
type EmptyArgs struct{}

// OpenDocumentArgs defines the input for open_document tool.
type OpenDocumentArgs struct {
	Source string `json:"source" jsonschema:"path or http(s) URL of the PDF to open"`
}

// TurnToArgs defines the input for turn_to tool.
type TurnToArgs struct {
	Page int `json:"page" jsonschema:"zero-based page index; out of range values are clamped"`
}

// SetZoomArgs defines the input for set_zoom tool.
type SetZoomArgs struct {
	Zoom float64 `json:"zoom" jsonschema:"zoom level, clamped to the configured range"`
}

// ResizeArgs defines the input for resize tool.
type ResizeArgs struct {
	Width  float64 `json:"width" jsonschema:"viewport width in pixels"`
	Height float64 `json:"height" jsonschema:"viewport height in pixels"`
}

// PageStatusArgs defines the input for page_status tool.
type PageStatusArgs struct {
	Page int `json:"page" jsonschema:"zero-based page index"`
}

// ReadingHistoryArgs defines the input for reading_history tool.
type ReadingHistoryArgs struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"document fingerprint; defaults to the open document"`
	Limit      int    `json:"limit,omitempty" jsonschema:"number of events to return"`
}

// StateResult reports the session after a tool call.
type StateResult struct {
	Snapshot viewer.Snapshot `json:"snapshot" jsonschema:"viewer state after the call"`
	Rendered int             `json:"rendered" jsonschema:"surfaces applied during the call"`
}

// PageStatusResult describes one page slot.
type PageStatusResult struct {
	Page     int             `json:"page"`
	Eligible bool            `json:"eligible" jsonschema:"inside the render window"`
	Active   bool            `json:"active" jsonschema:"part of the visible pair"`
	State    string          `json:"state" jsonschema:"placeholder, pending, ready or failed"`
	Surface  *viewer.Surface `json:"surface,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ReadingHistoryResult wraps reading log events.
type ReadingHistoryResult struct {
	Events []relational.EventRecord `json:"events" jsonschema:"newest first"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "open_document",
		Description: "Open a PDF by path or URL. The viewer starts at the first page with a small render window around it.",
	}, s.handleOpenDocument)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "viewer_state",
		Description: "Return the current page, zoom, render window, render scale and fullscreen flag.",
	}, s.handleViewerState)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "turn_to",
		Description: "Turn to a page. The render window grows in the direction of travel and never shrinks on turns.",
	}, s.handleTurnTo)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "next_spread",
		Description: "Turn forward by one two-page spread.",
	}, s.handleNextSpread)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "previous_spread",
		Description: "Turn back by one two-page spread.",
	}, s.handlePreviousSpread)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_zoom",
		Description: "Set the zoom level. Zoom changes render density of the visible pair only.",
	}, s.handleSetZoom)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "toggle_fullscreen",
		Description: "Enter or leave fullscreen. Either transition narrows the render window around the current page.",
	}, s.handleToggleFullscreen)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "resize",
		Description: "Set the viewport size in pixels and recompute the render scale.",
	}, s.handleResize)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "page_status",
		Description: "Report whether a page is mounted, visible and rendered.",
	}, s.handlePageStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reading_history",
		Description: "Query the reading log in DuckDB for recent page turns, zoom changes and failures.",
	}, s.handleReadingHistory)
}

func (s *Server) handleOpenDocument(ctx context.Context, _ *mcp.CallToolRequest, args OpenDocumentArgs) (*mcp.CallToolResult, StateResult, error) {
	if args.Source == "" {
		return nil, StateResult{}, errors.New("source is required")
	}
	if s.open == nil {
		return nil, StateResult{}, errors.New("document opening is not configured")
	}
	meta, provider, err := s.open(ctx, args.Source)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Complete(meta, err); err != nil {
		return nil, StateResult{}, err
	}
	s.swapProvider(provider)
	return nil, s.settle(ctx), nil
}

func (s *Server) handleViewerState(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, StateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil, StateResult{Snapshot: s.session.Snapshot()}, nil
}

func (s *Server) handleTurnTo(ctx context.Context, _ *mcp.CallToolRequest, args TurnToArgs) (*mcp.CallToolResult, StateResult, error) {
	return s.mutate(ctx, func(v *viewer.Session) { v.TurnTo(args.Page, time.Now()) })
}

func (s *Server) handleNextSpread(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, StateResult, error) {
	return s.mutate(ctx, func(v *viewer.Session) { v.NextSpread(time.Now()) })
}

func (s *Server) handlePreviousSpread(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, StateResult, error) {
	return s.mutate(ctx, func(v *viewer.Session) { v.PreviousSpread(time.Now()) })
}

func (s *Server) handleSetZoom(ctx context.Context, _ *mcp.CallToolRequest, args SetZoomArgs) (*mcp.CallToolResult, StateResult, error) {
	return s.mutate(ctx, func(v *viewer.Session) { v.SetZoom(args.Zoom) })
}

func (s *Server) handleToggleFullscreen(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyArgs) (*mcp.CallToolResult, StateResult, error) {
	return s.mutate(ctx, func(v *viewer.Session) { v.ToggleFullscreen() })
}

func (s *Server) handleResize(ctx context.Context, _ *mcp.CallToolRequest, args ResizeArgs) (*mcp.CallToolResult, StateResult, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, StateResult{}, fmt.Errorf("invalid size %gx%g", args.Width, args.Height)
	}
	return s.mutate(ctx, func(v *viewer.Session) {
		v.Resize(viewer.Size{Width: args.Width, Height: args.Height})
	})
}

func (s *Server) handlePageStatus(ctx context.Context, _ *mcp.CallToolRequest, args PageStatusArgs) (*mcp.CallToolResult, PageStatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Ready() {
		return nil, PageStatusResult{}, viewer.ErrSessionNotReady
	}
	total := s.session.Metadata().TotalPages
	if args.Page < 0 || args.Page >= total {
		return nil, PageStatusResult{}, fmt.Errorf("page %d out of range [0, %d)", args.Page, total)
	}

	slot := s.session.Slot(args.Page)
	res := PageStatusResult{
		Page:     args.Page,
		Eligible: s.session.IsEligibleForMount(args.Page),
		Active:   s.session.IsActivePair(args.Page),
		State:    slot.State.String(),
		Surface:  slot.Surface,
	}
	if slot.Err != nil {
		res.Error = slot.Err.Error()
	}
	return nil, res, nil
}

func (s *Server) handleReadingHistory(ctx context.Context, _ *mcp.CallToolRequest, args ReadingHistoryArgs) (*mcp.CallToolResult, ReadingHistoryResult, error) {
	if s.repo == nil {
		return nil, ReadingHistoryResult{}, errors.New("no reading log configured")
	}
	limit := args.Limit
	if limit == 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	docID := args.DocumentID
	if docID == "" {
		s.mu.Lock()
		docID = s.session.Metadata().Fingerprint
		s.mu.Unlock()
	}

	events, err := s.repo.RecentEvents(ctx, docID, limit)
	if err != nil {
		return nil, ReadingHistoryResult{}, fmt.Errorf("failed to query reading log: %w", err)
	}
	return nil, ReadingHistoryResult{Events: events}, nil
}

// mutate applies fn under the session lock, finishes any flip (tool calls
// have no animation loop) and renders what became eligible.
func (s *Server) mutate(ctx context.Context, fn func(*viewer.Session)) (*mcp.CallToolResult, StateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Ready() {
		return nil, StateResult{}, viewer.ErrSessionNotReady
	}
	fn(s.session)
	return nil, s.settle(ctx), nil
}

func (s *Server) settle(ctx context.Context) StateResult {
	s.session.FinishTurn()
	rendered := 0
	if s.provider != nil {
		rendered = s.session.Fulfill(ctx, s.provider, s.limit)
	}
	return StateResult{Snapshot: s.session.Snapshot(), Rendered: rendered}
}

// SetProvider installs the provider for the currently open document.
func (s *Server) SetProvider(p viewer.PageSurfaceProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapProvider(p)
}

func (s *Server) swapProvider(p viewer.PageSurfaceProvider) {
	if old, ok := s.provider.(io.Closer); ok && s.provider != p {
		if err := old.Close(); err != nil {
			s.log.Warn("closing previous provider failed", "error", err)
		}
	}
	s.provider = p
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting flipview MCP server on stdio")
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

// Close releases the current provider.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.provider.(io.Closer); ok {
		s.provider = nil
		return c.Close()
	}
	return nil
}
