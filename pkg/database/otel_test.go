package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	got := Sanitize(`UPDATE "users" SET password_hash = '$2a$12$abc' WHERE email = 'a@b.c'`)
	assert.Equal(t, `UPDATE "users" SET password_hash='***' WHERE email = 'a@b.c'`, got)

	long := strings.Repeat("x", maxStatementLength+10)
	assert.Len(t, Sanitize(long), maxStatementLength+3)
}

func TestOperationName(t *testing.T) {
	cases := map[string]string{
		"select * from users":          "db.select",
		"  INSERT INTO users VALUES()": "db.insert",
		"UPDATE users SET x=1":         "db.update",
		"delete from users":            "db.delete",
		"WITH t AS (SELECT 1)":         "db.query",
		"":                             "db.unknown",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationName(sql), sql)
	}
}
