package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", Size: 256, WordSize: 1},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "nvme", Size: 256, WordSize: 1},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "word size not a power of two",
			config:  Config{Backend: BackendRAM, Size: 256, WordSize: 3},
			wantErr: ErrWordSizeInvalid,
		},
		{
			name:    "zero word size",
			config:  Config{Backend: BackendRAM, Size: 256},
			wantErr: ErrWordSizeInvalid,
		},
		{
			name:    "erase size not a multiple of word size",
			config:  Config{Backend: BackendFlash, Size: 256, WordSize: 4, EraseSize: 6},
			wantErr: ErrEraseSizeInvalid,
		},
		{
			name:    "size not a multiple of erase size",
			config:  Config{Backend: BackendFlash, Size: 100, WordSize: 1, EraseSize: 16},
			wantErr: ErrSizeInvalid,
		},
		{
			name:    "zero size",
			config:  Config{Backend: BackendSQLite, WordSize: 1},
			wantErr: ErrSizeInvalid,
		},
		{
			name:    "base plus size wraps",
			config:  Config{Backend: BackendRAM, Base: ^uint64(0) - 8, Size: 256, WordSize: 1},
			wantErr: ErrSizeInvalid,
		},
		{
			name:    "erase-before-write without erase size",
			config:  Config{Backend: BackendSQLite, Size: 256, WordSize: 1, RequireErase: true},
			wantErr: ErrEraseSizeInvalid,
		},
		{
			name:    "valid ram config",
			config:  Config{Backend: BackendRAM, Size: 256, WordSize: 1},
			wantErr: nil,
		},
		{
			name:    "valid flash config",
			config:  Config{Backend: BackendFlash, Size: 4096, WordSize: 4, EraseSize: 1024, EraseValue: 0xFF, RequireErase: true},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: BackendSQLite, Size: 1024, WordSize: 512, EraseSize: 512},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigMediumName(t *testing.T) {
	if got := (Config{}).MediumName(); got != DefaultMediumName {
		t.Errorf("MediumName() = %q, want %q", got, DefaultMediumName)
	}
	if got := (Config{Name: "boot"}).MediumName(); got != "boot" {
		t.Errorf("MediumName() = %q, want %q", got, "boot")
	}
}
