package job_test

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/job"
)

func TestEscape(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp string
	}{
		"Plain strings should be quoted.":    {in: "abc", exp: `'abc'`},
		"Empty strings should be quoted.":    {in: "", exp: `''`},
		"Paths should be kept.":              {in: "/tmp/pkg", exp: `'/tmp/pkg'`},
		"Single quotes should be escaped.":   {in: "O'Reilly", exp: `'O\'Reilly'`},
		"Backslashes should be escaped.":     {in: `C:\R`, exp: `'C:\\R'`},
		"Double quotes should be kept.":      {in: `say "hi"`, exp: `'say "hi"'`},
		"Injection attempts should be inert": {in: `'); system('rm -rf /'); ('`, exp: `'\'); system(\'rm -rf /\'); (\''`},
		"Non ASCII should be kept.":          {in: "ñandú/λ", exp: `'ñandú/λ'`},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got := job.Escape(test.in)
			assert.Equal(test.exp, got)

			back, err := job.Unescape(got)
			assert.NoError(err)
			assert.Equal(test.in, back)
		})
	}
}

func TestUnescapeInvalid(t *testing.T) {
	tests := map[string]struct {
		lit string
	}{
		"Empty.":                 {lit: ""},
		"Single quote only.":     {lit: `'`},
		"Missing delimiters.":    {lit: `abc`},
		"Double quoted.":         {lit: `"abc"`},
		"Unescaped inner quote.": {lit: `'a'b'`},
		"Dangling backslash.":    {lit: `'abc\'`},
		"Unsupported escape.":    {lit: `'a\nb'`},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := job.Unescape(test.lit)
			assert.Error(t, err)
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	f := func(s string) bool {
		lit := job.Escape(s)
		if lit[0] != '\'' || lit[len(lit)-1] != '\'' {
			return false
		}
		got, err := job.Unescape(lit)
		return err == nil && got == s
	}

	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func FuzzEscapeRoundTrip(f *testing.F) {
	for _, seed := range []string{"", "abc", "O'Reilly", `C:\R`, `\'`, `'\\'`, "\x00\xff"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		got, err := job.Unescape(job.Escape(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})
}
