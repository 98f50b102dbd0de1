package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	builder := NewBuilder(8)
	builder.WriteString("create table ")
	builder.WriteByte('`')
	builder.WriteString("t1")
	builder.WriteByte('`')

	assert.Equal(t, "create table `t1`", builder.String())
	assert.Equal(t, 17, builder.Len())

	builder.Reset()
	assert.Equal(t, "", builder.String())
}

func TestSprintf(t *testing.T) {
	assert.Equal(t, "no args", Sprintf("no args"))
	assert.Equal(t, "col1 int", Sprintf("%s %s", "col1", "int"))
}

func TestJoinPooled(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"id int"}, "id int"},
		{"multiple", []string{"id int", "name varchar(255)"}, "id int,name varchar(255)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPooled(tt.parts, ","))
		})
	}
}

func TestBuildStringOwnsResult(t *testing.T) {
	first := BuildString(Small, func(b *Builder) { b.WriteString("first") })
	second := BuildString(Small, func(b *Builder) { b.WriteString("other") })

	assert.Equal(t, "first", first)
	assert.Equal(t, "other", second)
}

func TestClone(t *testing.T) {
	assert.Equal(t, "", Clone(""))
	assert.Equal(t, "abc", Clone("abc"))
}
