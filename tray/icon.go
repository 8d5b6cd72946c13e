package tray

// Pixmap is a binary icon in the format used by StatusNotifierItem: ARGB32
// pixels in network byte order, row by row.
type Pixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// ToolTip is the value of the StatusNotifierItem ToolTip property.
//
// Format of tooltip is as follows
//
//	[<icon-name>, <icon>, <title>, <description>]
type ToolTip struct {
	IconName    string
	IconPixmap  []Pixmap
	Title       string
	Description string
}

// NewToolTip returns a text-only [ToolTip].
func NewToolTip(title string) ToolTip {
	return ToolTip{
		IconPixmap: []Pixmap{},
		Title:      title,
	}
}
