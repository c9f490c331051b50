package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "answer with list",
			in:   "<div><p>Here is what the uploaded documents say about <em>revenue</em>:</p><ul><li><strong>a.txt</strong>: grew 12%</li><li>b &amp; c</li></ul></div>",
			want: "Here is what the uploaded documents say about revenue:\n\n- a.txt: grew 12%\n\n- b & c",
		},
		{
			name: "not found",
			in:   "<div><p>I couldn't find any relevant information in the uploaded documents to answer your question.</p></div>",
			want: "I couldn't find any relevant information in the uploaded documents to answer your question.",
		},
		{
			name: "plain text",
			in:   "  no answer found in the documents  ",
			want: "no answer found in the documents",
		},
		{
			name: "script dropped",
			in:   "<p>ok</p><script>alert(1)</script>",
			want: "ok",
		},
		{
			name: "image placeholder",
			in:   "<p>see <img src=\"x.png\"/> here</p>",
			want: "see [image] here",
		},
		{
			name: "unterminated markup",
			in:   "<p>partial <strong>bo",
			want: "partial bo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenHTML(tt.in))
		})
	}
}
