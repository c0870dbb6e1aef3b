package comment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFields(t *testing.T) {
	t.Parallel()
	v := newValidator()

	valid := fields{Name: "Jane", Email: "jane@example.com", Comment: "Hi"}
	assert.Nil(t, validateFields(v, valid))

	errs := validateFields(v, fields{})
	assert.Len(t, errs, 3)
	assert.Equal(t, `Please fill in the field "Name".`, errs["name"])
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "comment")

	bad := valid
	bad.Email = "jane"
	assert.Equal(t, map[string]string{"email": "Please enter a valid e-mail address."}, validateFields(v, bad))

	long := valid
	long.Name = strings.Repeat("x", 65)
	assert.Equal(t, `The field "Name" may not be longer than 64 characters.`, validateFields(v, long)["name"])

	multibyte := valid
	multibyte.Name = strings.Repeat("ü", 64)
	assert.Nil(t, validateFields(v, multibyte))
}

func TestValidateFields_Website(t *testing.T) {
	t.Parallel()
	v := newValidator()
	base := fields{Name: "Jane", Email: "jane@example.com", Comment: "Hi"}

	for _, ok := range []string{"", "example.com", "https://example.com/blog?x=1", "bücher.example", "mailto:jane@example.com", "#top", strings.Repeat("a", 63) + ".example"} {
		f := base
		f.Website = ok
		assert.Nil(t, validateFields(v, f), ok)
	}
	for _, bad := range []string{"not a url", "http://", "<script>", "mailto:nobody", strings.Repeat("a", 120) + ".example", strings.Repeat("a", 64) + ".example"} {
		f := base
		f.Website = bad
		assert.Contains(t, validateFields(v, f), "website", bad)
	}
}
