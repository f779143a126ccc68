package transport

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-drift/driftui/pkg/core"
)

// maxTreeDepth limits recursion depth to prevent stack overflow from malformed trees.
const maxTreeDepth = 500

// Inspectable streams expose their render owner to the debug endpoints.
type Inspectable interface {
	Owner() *core.RenderOwner
}

// SessionInfo describes one open session.
type SessionInfo struct {
	ID      string    `json:"id"`
	Stream  string    `json:"stream"`
	Started time.Time `json:"started"`
	Sent    int       `json:"sent"`
}

// TreeNode is a node of the serialized render tree. Props holds the
// scalar props of the node; nested nodes are listed under Children with
// the prop path they were found at.
type TreeNode struct {
	Name     string         `json:"name"`
	Slot     string         `json:"slot,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
	Depth    int            `json:"depth"`
	Children []TreeNode     `json:"children,omitempty"`
}

func (s *Server) handleSessions(c *gin.Context) {
	s.mu.Lock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, SessionInfo{
			ID:      sess.id,
			Stream:  fmt.Sprintf("%T", sess.stream),
			Started: sess.started,
			Sent:    sess.sentCount(),
		})
	}
	s.mu.Unlock()
	slices.SortFunc(infos, func(a, b SessionInfo) int { return a.Started.Compare(b.Started) })
	c.JSON(http.StatusOK, gin.H{"sessions": infos})
}

// handleTree returns the latest rendered tree of a session.
func (s *Server) handleTree(c *gin.Context) {
	// Recover from panics during serialization
	defer func() {
		if rec := recover(); rec != nil {
			c.String(http.StatusInternalServerError, "panic: %v", rec)
		}
	}()

	s.mu.Lock()
	sess, ok := s.sessions[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.String(http.StatusNotFound, "no session %s", c.Param("id"))
		return
	}
	inspectable, ok := sess.stream.(Inspectable)
	if !ok {
		c.String(http.StatusNotImplemented, "stream %T has no render tree", sess.stream)
		return
	}
	root, err := inspectable.Owner().Last()
	if root == nil {
		msg := "no render tree"
		if err != nil {
			msg = err.Error()
		}
		c.String(http.StatusServiceUnavailable, msg)
		return
	}

	c.IndentedJSON(http.StatusOK, serializeTree(root, "", 0))
}

func serializeTree(node *core.RenderedNode, slot string, depth int) TreeNode {
	out := TreeNode{Name: node.Name, Slot: slot, Depth: depth}
	if depth >= maxTreeDepth {
		return out
	}
	for _, key := range slices.Sorted(maps.Keys(node.Props)) {
		out.collect(key, node.Props[key], depth)
	}
	return out
}

func (n *TreeNode) collect(path string, value any, depth int) {
	switch v := value.(type) {
	case *core.RenderedNode:
		n.Children = append(n.Children, serializeTree(v, path, depth+1))
	case core.Props:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			n.collect(path+"."+key, v[key], depth)
		}
	case map[string]any:
		n.collect(path, core.Props(v), depth)
	case []any:
		for i, item := range v {
			n.collect(path+"."+strconv.Itoa(i), item, depth)
		}
	case nil, string, bool, int, int64, float64:
		if n.Props == nil {
			n.Props = make(map[string]any)
		}
		n.Props[path] = v
	default:
		if n.Props == nil {
			n.Props = make(map[string]any)
		}
		n.Props[path] = fmt.Sprintf("<%T>", v)
	}
}
