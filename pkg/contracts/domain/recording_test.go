package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordingTag(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    RecordingTag
		wantErr bool
	}{
		{
			name: "three components",
			path: "mouse01_sess3_day2.json",
			want: RecordingTag{SubjectID: "mouse01", SessionID: "sess3", Tag: "day2"},
		},
		{
			name: "four components with signal",
			path: "mouse01_opto_sess3_day2.json",
			want: RecordingTag{SubjectID: "mouse01", Signal: "opto", SessionID: "sess3", Tag: "day2"},
		},
		{
			name: "directory is ignored",
			path: "/data/raw/mouse01_sess3_day2.json",
			want: RecordingTag{SubjectID: "mouse01", SessionID: "sess3", Tag: "day2"},
		},
		{
			name:    "too few components",
			path:    "mouse01_day2.json",
			wantErr: true,
		},
		{
			name:    "too many components",
			path:    "mouse01_opto_left_sess3_day2.json",
			wantErr: true,
		},
		{
			name:    "no separators",
			path:    "session.json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecordingTag(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordingTagStem(t *testing.T) {
	three := RecordingTag{SubjectID: "mouse01", SessionID: "sess3", Tag: "day2"}
	assert.Equal(t, "mouse01_sess3_day2", three.Stem())
	assert.Equal(t, "mouse01_sess3_day2.nwb.json", three.OutputFileName())

	four := RecordingTag{SubjectID: "mouse01", Signal: "opto", SessionID: "sess3", Tag: "day2"}
	assert.Equal(t, "mouse01_opto_sess3_day2", four.Stem())
	assert.Equal(t, "mouse01_opto_sess3_day2.nwb.json", four.OutputFileName())
}
