package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/bindle/internal/adapters/scan"
)

func TestScript_Scan(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "require call",
			source: `var yen = require('yen');`,
			want:   []string{"yen"},
		},
		{
			name:   "require with double quotes",
			source: `const a = require("crox");`,
			want:   []string{"crox"},
		},
		{
			name:   "dynamic import",
			source: `import('./lazy.js').then(init);`,
			want:   []string{"./lazy.js"},
		},
		{
			name:   "default import",
			source: `import yen from 'yen';`,
			want:   []string{"yen"},
		},
		{
			name:   "named imports",
			source: `import { one, two as three } from './pair.js';`,
			want:   []string{"./pair.js"},
		},
		{
			name:   "namespace import",
			source: `import * as util from 'heredoc';`,
			want:   []string{"heredoc"},
		},
		{
			name:   "bare import statement",
			source: `import 'polyfill';`,
			want:   []string{"polyfill"},
		},
		{
			name: "multi-line import",
			source: `import {
	one,
	two
} from './split.js';`,
			want: []string{"./split.js"},
		},
		{
			name:   "re-export with source",
			source: `export { helper } from './helper.js';`,
			want:   []string{"./helper.js"},
		},
		{
			name:   "export star",
			source: `export * from './all.js';`,
			want:   []string{"./all.js"},
		},
		{
			name:   "plain export yields nothing",
			source: `export default function () { return require('yen'); }`,
			want:   []string{"yen"},
		},
		{
			name:   "export const yields nothing",
			source: `export const from = 'nowhere';`,
			want:   nil,
		},
		{
			name:   "require inside line comment ignored",
			source: "// require('ghost')\nrequire('real');",
			want:   []string{"real"},
		},
		{
			name:   "require inside block comment ignored",
			source: "/* require('ghost') */ require('real');",
			want:   []string{"real"},
		},
		{
			name:   "require inside string ignored",
			source: `var s = "require('ghost')"; require('real');`,
			want:   []string{"real"},
		},
		{
			name:   "template literal skipped including interpolation",
			source: "var s = `require('ghost') ${require('inner')}`;\nrequire('real');",
			want:   []string{"real"},
		},
		{
			name:   "member access is not the keyword",
			source: `loader.require('ghost'); require('real');`,
			want:   []string{"real"},
		},
		{
			name:   "non-literal argument ignored",
			source: `require(name); require('real');`,
			want:   []string{"real"},
		},
		{
			name:   "duplicates preserved in order",
			source: `require('a'); require('b'); require('a');`,
			want:   []string{"a", "b", "a"},
		},
		{
			name:   "empty source",
			source: ``,
			want:   nil,
		},
	}

	scanner := scan.NewScript()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanner.Scan([]byte(tt.source)))
		})
	}
}
