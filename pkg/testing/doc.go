// Package testing provides a render testing harness for driftui trees.
//
// # Quick Start
//
// Create a tester, mount an element, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := uitest.NewRenderTesterWithT(t)
//	    tester.Mount(Counter(nil))
//
//	    // Find nodes
//	    button := tester.Find(uitest.ByName("ui.Button")).First()
//
//	    // Invoke callbacks the client would call
//	    tester.Press(uitest.ByName("ui.Button"))
//	    tester.Pump()
//
//	    if !tester.Find(uitest.ByProp("label", 1)).Exists() {
//	        t.Error("expected label 1")
//	    }
//	}
//
// # Snapshot Testing
//
// Capture and compare rendered tree snapshots:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/counter.snapshot.json")
//
// Update snapshots with:
//
//	DRIFTUI_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Asynchronous Updates
//
// Live hooks update state from table goroutines. PumpUntil renders until
// a condition holds:
//
//	table.Append([]any{"AAPL", 189.5})
//	tester.PumpUntil(uitest.ByProp("rows", 1), time.Second)
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import uitest "github.com/go-drift/driftui/pkg/testing"
package testing
