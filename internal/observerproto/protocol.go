package observerproto

// Version is the debug stream protocol version.
const Version = "1.0"

const (
	TypeSubscribe  = "SUBSCRIBE"
	TypeWelcome    = "WELCOME"
	TypeDebugNodes = "DEBUG_NODES"
)

// Client -> Server. First message on the debug WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// IncludeInterim also streams the sets published between expansions
	// while a search is paused by the debug sleep.
	IncludeInterim bool `json:"include_interim,omitempty"`
	// MaxNodes caps each of the three sets; larger sets are truncated.
	MaxNodes int `json:"max_nodes,omitempty"`
}

// Server -> Client. Reply to the first SUBSCRIBE.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Enabled         bool   `json:"enabled"`
	MaxNodes        int    `json:"max_nodes"`
}

// Server -> Client. One published snapshot of a search.
// Positions are [x,y,z]; each set is sorted by y, then z, then x.
type DebugNodesMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Seq             uint64   `json:"seq"`
	Final           bool     `json:"final"`
	Truncated       bool     `json:"truncated,omitempty"`
	Visited         [][3]int `json:"visited"`
	NotVisited      [][3]int `json:"not_visited"`
	Path            [][3]int `json:"path,omitempty"`
}

// HTTP response for GET /debug/v1/status.
type StatusResponse struct {
	ProtocolVersion string `json:"protocol_version"`
	Enabled         bool   `json:"enabled"`
	Seq             uint64 `json:"seq"`
	Visited         int    `json:"visited"`
	NotVisited      int    `json:"not_visited"`
	Path            int    `json:"path"`
	Sessions        int64  `json:"sessions"`
}
