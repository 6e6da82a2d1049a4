// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the svgviewer commands as tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/svgview/internal/commands"
	"github.com/starford/svgview/internal/webview"
	"github.com/starford/svgview/internal/workspace"
)

const protocolURI = "svgview://panel-protocol"

// Server wraps the MCP server with svgview tools.
type Server struct {
	mcp       *server.MCPServer
	commands  *commands.Service
	workspace *workspace.Workspace
	panels    *webview.Host
}

// New creates a new MCP server with all svgview tools registered.
func New(cmds *commands.Service, ws *workspace.Workspace, panels *webview.Host) *Server {
	s := &Server{commands: cmds, workspace: ws, panels: panels}

	s.mcp = server.NewMCPServer(
		"svgview",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("open_preview",
		mcp.WithDescription("Open (or reveal) a live preview panel for an SVG file. "+
			"Returns the panel ids; each panel is served at /panels/{id}."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the SVG file (e.g. icons/logo.svg)")),
	), s.openPreview)

	s.mcp.AddTool(mcp.NewTool("open_export",
		mcp.WithDescription("Open (or reveal) the PNG export panel for an SVG file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the SVG file")),
	), s.openExport)

	s.mcp.AddTool(mcp.NewTool("save_png",
		mcp.WithDescription("Rasterise an SVG file to the sibling .png. With width and height "+
			"the drawing is scaled to fit the box and padded with transparency."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the SVG file")),
		mcp.WithString("width", mcp.Description("Optional output width in pixels")),
		mcp.WithString("height", mcp.Description("Optional output height in pixels")),
	), s.savePNG)

	s.mcp.AddTool(mcp.NewTool("copy_data_uri",
		mcp.WithDescription("Return the SVG document as a data:image/svg+xml URI and copy it to the clipboard."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the SVG file")),
	), s.copyDataURI)

	s.mcp.AddTool(mcp.NewTool("save_data_url",
		mcp.WithDescription("Write a data:image/png;base64 URL to a PNG file inside the workspace."),
		mcp.WithString("data_url", mcp.Required(), mcp.Description("PNG data URL")),
		mcp.WithString("output", mcp.Required(), mcp.Description("Workspace-relative output path")),
	), s.saveDataURL)

	s.mcp.AddTool(mcp.NewTool("list_svgs",
		mcp.WithDescription("List SVG files in the workspace or in a folder of it."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listSVGs)

	s.mcp.AddTool(mcp.NewTool("read_svg",
		mcp.WithDescription("Read an SVG document, including unsaved editor text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Workspace-relative path of the SVG file")),
	), s.readSVG)

	s.mcp.AddTool(mcp.NewTool("list_panels",
		mcp.WithDescription("List live preview and export panels."),
	), s.listPanels)

	s.mcp.AddResource(
		mcp.NewResource(protocolURI, "Panel Protocol",
			mcp.WithResourceDescription("Events and messages exchanged between panels and the server."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProtocolResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) run(ctx context.Context, id string, args commands.Args) (*mcp.CallToolResult, error) {
	res, err := s.commands.Execute(ctx, id, args, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Skipped) > 0 && len(res.Panels) == 0 && len(res.Outputs) == 0 && res.DataURI == "" {
		return mcp.NewToolResultError(commands.NotSVGMessage), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) openPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, commands.OpenFile, commands.Args{Path: path})
}

func (s *Server) openExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, commands.OpenExport, commands.Args{URIs: []string{path}})
}

func (s *Server) savePNG(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := commands.Args{URIs: []string{path}}
	width, werr := req.RequireString("width")
	height, herr := req.RequireString("height")
	if werr != nil && herr != nil {
		return s.run(ctx, commands.SaveAs, args)
	}
	args.Width, args.Height = width, height
	return s.run(ctx, commands.SaveAsSize, args)
}

func (s *Server) copyDataURI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.commands.Execute(ctx, commands.CopyDUI, commands.Args{URIs: []string{path}}, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.DataURI == "" {
		return mcp.NewToolResultError(commands.NotSVGMessage), nil
	}
	return mcp.NewToolResultText(res.DataURI), nil
}

func (s *Server) saveDataURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dataURL, err := req.RequireString("data_url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := req.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, commands.SaveDU, commands.Args{DataURL: dataURL, Output: output})
}

func (s *Server) listSVGs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	files, err := s.workspace.Store().List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readSVG(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.workspace.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.workspace.OpenTextDocument(ctx, r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(doc.Text), nil
}

func (s *Server) listPanels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panels := s.panels.Panels()
	if len(panels) == 0 {
		return mcp.NewToolResultText("no open panels"), nil
	}
	out, _ := json.MarshalIndent(panels, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readProtocolResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      protocolURI,
			MIMEType: "text/markdown",
			Text:     PanelProtocol,
		},
	}, nil
}

// Serve runs the MCP server on in/out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}
