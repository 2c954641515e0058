// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import "testing"

func TestMetricsRegistry_CountersAndGauges(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Add("launched", 2)
	mr.Add("launched", 1)
	mr.Set("active", 3)

	if got := mr.Counter("launched"); got != 3 {
		t.Errorf("counter launched = %d, want 3", got)
	}
	snap := mr.GetSnapshot()
	if snap["launched"] != int64(3) {
		t.Errorf("snapshot launched = %v, want 3", snap["launched"])
	}
	if snap["active"] != 3 {
		t.Errorf("snapshot active = %v, want 3", snap["active"])
	}
}

func TestConfigStore_GetBool(t *testing.T) {
	cs := NewConfigStore()
	if cs.GetBool("debug", true) != true {
		t.Error("missing key should fall back to default")
	}
	cs.SetConfig(map[string]any{"debug": false})
	if cs.GetBool("debug", true) != false {
		t.Error("stored knob not honored")
	}
}
