package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	r := New("cheap-model", "expensive-model")

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "short plain question routes cheap",
			question: "What fittings come with the kit?",
			want:     "cheap-model",
		},
		{
			name:     "keyword escalates despite short length",
			question: "400 hp turbo LS on E85, need injector size?",
			want:     "expensive-model",
		},
		{
			name:     "exactly at threshold without keywords stays cheap",
			question: strings.Repeat("a", LengthThreshold),
			want:     "cheap-model",
		},
		{
			name:     "over threshold escalates",
			question: strings.Repeat("a", LengthThreshold+1),
			want:     "expensive-model",
		},
		{
			name:     "keyword match is case-insensitive",
			question: "Does this support E85?",
			want:     "expensive-model",
		},
		{
			name:     "returnless keyword escalates",
			question: "returnless setup on a c10?",
			want:     "expensive-model",
		},
		{
			name:     "empty question routes cheap",
			question: "",
			want:     "cheap-model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Pick(tt.question))
		})
	}
}
