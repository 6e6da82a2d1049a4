package mcpserver

// PanelProtocol describes how panels talk to the server. MCP clients read it
// before driving panels directly over HTTP.
const PanelProtocol = `# svgview Panel Protocol

Every panel is a browser tab at /panels/{id}. The tab renders the panel
HTML in a sandboxed frame and keeps one SSE stream open.

## Server to panel (GET /api/panels/{id}/events)

| event        | data                              |
|--------------|-----------------------------------|
| update       | {"title": "...", "html": "..."}   |
| reveal       | {"column": "Beside"}              |
| dispose      | {"id": "..."}                     |
| notification | {"level": "info", "message": "..."} |

The first event on every connection is an update with the current content.

## Panel to server (POST /api/panels/{id}/messages)

` + "```" + `json
{"command": "setState", "body": {"resource": "file:///work/a.svg", "zoom": 1.5}}
{"command": "exportData", "body": {"dataUrl": "data:image/png;base64,...", "output": "/work/a.png", "resource": "file:///work/a.svg"}}
` + "```" + `

## Rules

1. **resource must match.** Messages whose resource differs from the panel's
   bound document are dropped.
2. **zoom is a JSON number.** Other values are ignored and the previous zoom
   is kept.
3. **exportData writes inside the workspace only.** Output paths outside the
   workspace root are rejected.
4. **Focus is reported** with POST /api/panels/{id}/focus {"active": true}.
   Closing a panel is DELETE /api/panels/{id}.
`
