package domain

import "testing"

func TestStatus_IsClassifiable(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, true},
		{StatusToReprocess, true},
		{StatusToDownload, false},
		{StatusToSkip, false},
		{StatusToSkipLimit, false},
		{StatusDownloading, false},
		{StatusDownloaded, false},
		{StatusSkipped, false},
		{StatusError, false},
	}

	for _, test := range tests {
		result := test.status.IsClassifiable()
		if result != test.expected {
			t.Errorf("Status(%s).IsClassifiable() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestStatus_IsRetryable(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, false},
		{StatusToDownload, false},
		{StatusToSkip, true},
		{StatusToSkipLimit, true},
		{StatusToReprocess, false},
		{StatusDownloading, false},
		{StatusDownloaded, false},
		{StatusSkipped, true},
		{StatusError, true},
	}

	for _, test := range tests {
		result := test.status.IsRetryable()
		if result != test.expected {
			t.Errorf("Status(%s).IsRetryable() = %v, expected %v", test.status, result, test.expected)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		value    string
		expected Status
	}{
		{"to_download", StatusToDownload},
		{"to_skip_limit", StatusToSkipLimit},
		{"downloaded", StatusDownloaded},
		{"", StatusPending},
		{"ignored", StatusPending},
		{"bogus", StatusPending},
	}

	for _, test := range tests {
		result := ParseStatus(test.value)
		if result != test.expected {
			t.Errorf("ParseStatus(%q) = %s, expected %s", test.value, result, test.expected)
		}
	}
}
