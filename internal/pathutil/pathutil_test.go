package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty", "", true},
		{"null byte", "a\x00b", true},
		{"simple segment", "..", true},
		{"leading segment", "../foo", true},
		{"middle segment", "out/../../etc", true},
		{"valid relative", "work/clean_sample.csv", false},
		{"single segment", "clean_sample.csv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			assert.Equal(t, tt.wantErr, err != nil, "ValidateFilePath(%q) err = %v", tt.path, err)
		})
	}
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, ValidateFileName("clean_sample.csv"))
	assert.ErrorIs(t, ValidateFileName("dir/clean_sample.csv"), ErrInvalidName)
	assert.ErrorIs(t, ValidateFileName(`dir\clean.csv`), ErrInvalidName)
	assert.ErrorIs(t, ValidateFileName("."), ErrInvalidName)
	assert.Error(t, ValidateFileName(".."))
}

func TestValidateArtifactName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"sample.csv", false},
		{"clean_sample.csv", false},
		{"raw-data_2019", false},
		{"", true},
		{".hidden", true},
		{"a/b", true},
		{"with space", true},
		{"..", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
