package render

import "testing"

func TestMipExtent(t *testing.T) {
	tests := []struct {
		name                string
		width, height, mip  uint32
		wantW, wantH        uint32
	}{
		{"mip 0 is unchanged", 1024, 512, 0, 1024, 512},
		{"mip 1 halves", 1024, 512, 1, 512, 256},
		{"mip 3", 1024, 512, 3, 128, 64},
		{"floors at 1, never reaches 0", 4, 4, 10, 1, 1},
		{"odd dimension rounds down", 15, 15, 1, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := mipExtent(tt.width, tt.height, tt.mip)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("mipExtent(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.width, tt.height, tt.mip, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
