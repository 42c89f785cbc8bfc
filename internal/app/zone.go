package app

// Zone IDs for mouse click detection. View marks them and scans the frame
// with bubblezone; handleMouse looks them up.
const (
	zoneSessionPrefix = "session:"
	zoneChatPane      = "pane:chat"
	zoneEditorPane    = "pane:editor"
	zoneShellPane     = "pane:shell"
)

func sessionZoneID(id string) string {
	return zoneSessionPrefix + id
}

var paneZones = [paneCount]string{
	paneChat:   zoneChatPane,
	paneEditor: zoneEditorPane,
	paneShell:  zoneShellPane,
}
