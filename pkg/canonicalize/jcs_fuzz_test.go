package canonicalize

import (
	"encoding/json"
	"testing"
)

func FuzzJCS(f *testing.F) {
	f.Add([]byte(`{"a":1,"b":2}`))
	f.Add([]byte(`{"z":{"y":"foo","x":"bar"},"a":1}`))
	f.Add([]byte(`{"html":"<script>alert('xss')</script> &"}`))
	f.Add([]byte(`{"num":123.456,"bool":true,"null":null}`))
	f.Add([]byte(`{"arr":[3,1,2],"nested":{"deep":{"key":"val"}}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"":"empty_key","a":""}`))
	f.Add([]byte(`{"unicode":"こんにちは","emoji":"🚀"}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var v interface{}
		if err := json.Unmarshal(data, &v); err != nil {
			t.Skip("invalid JSON input")
			return
		}

		b1, err := JCS(v)
		if err != nil {
			return
		}
		b2, err := JCS(v)
		if err != nil {
			t.Fatal("JCS returned error on second call but not first")
		}
		if string(b1) != string(b2) {
			t.Errorf("JCS non-deterministic:\n  first:  %s\n  second: %s", b1, b2)
		}

		// re-canonicalizing canonical output is a fixed point
		b3, err := Transform(b1)
		if err != nil {
			t.Fatalf("canonical output rejected: %v", err)
		}
		if string(b1) != string(b3) {
			t.Errorf("JCS not idempotent:\n  once:  %s\n  twice: %s", b1, b3)
		}
	})
}
