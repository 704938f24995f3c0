package idhash

import "testing"

func TestComputeRunID(t *testing.T) {
	tests := []struct {
		name      string
		network   string
		startedAt int64
		seq       uint64
		wantLen   int // hash length should be 64
	}{
		{
			name:      "mainnet run",
			network:   "mainnet",
			startedAt: 1700000000000,
			seq:       0,
			wantLen:   64,
		},
		{
			name:      "sepolia run",
			network:   "sepolia",
			startedAt: 1700000000000,
			seq:       3,
			wantLen:   64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRunID(tt.network, tt.startedAt, tt.seq)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeRunID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeRunID(tt.network, tt.startedAt, tt.seq)
			if got != got2 {
				t.Errorf("ComputeRunID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID("mainnet", 1700000000000, 0)

	if got := ComputeRunID("sepolia", 1700000000000, 0); got == base {
		t.Error("Different network should produce different hash")
	}

	if got := ComputeRunID("mainnet", 1700000000001, 0); got == base {
		t.Error("Different started_at should produce different hash")
	}

	if got := ComputeRunID("mainnet", 1700000000000, 1); got == base {
		t.Error("Different seq should produce different hash")
	}
}
