package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tryit/internal/model"
)

var testSchemes = map[string]model.SecurityScheme{
	"bearer":   {Name: "bearer", Type: "http", Scheme: "bearer"},
	"apiKey":   {Name: "apiKey", Type: "apiKey", In: "header", ParamName: "X-API-Key"},
	"queryKey": {Name: "queryKey", Type: "apiKey", In: "query", ParamName: "key"},
	"oauth":    {Name: "oauth", Type: "oauth2", TokenURL: "/token"},
}

func TestAuthHeaders(t *testing.T) {
	m := &authModal{store: map[string]authState{}}
	op := &model.Operation{Security: []string{"bearer", "apiKey", "queryKey"}}

	assert.Equal(t, map[string]string{"Authorization": "Bearer cfg"}, m.headers(op, testSchemes, " cfg "))
	assert.Empty(t, m.headers(op, testSchemes, ""))

	m.store["bearer"] = authState{token: "tok", tokenType: "Bearer"}
	m.store["apiKey"] = authState{token: "k1"}
	m.store["queryKey"] = authState{token: "q1"}
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer tok",
		"X-API-Key":     "k1",
	}, m.headers(op, testSchemes, "cfg"))

	oauthOp := &model.Operation{Security: []string{"oauth"}}
	m.store["oauth"] = authState{token: "o1", tokenType: "mac"}
	assert.Equal(t, map[string]string{"Authorization": "mac o1"}, m.headers(oauthOp, testSchemes, ""))

	assert.Empty(t, m.headers(&model.Operation{}, testSchemes, ""))
}

func TestAuthSatisfied(t *testing.T) {
	m := &authModal{store: map[string]authState{}}
	op := &model.Operation{Security: []string{"bearer", "oauth"}}
	assert.False(t, m.satisfied(op))

	m.store["oauth"] = authState{token: "  "}
	assert.False(t, m.satisfied(op))

	m.store["oauth"] = authState{token: "x"}
	assert.True(t, m.satisfied(op))
	assert.False(t, m.satisfied(&model.Operation{}))
}

func TestSchemeKinds(t *testing.T) {
	assert.True(t, isBearer(testSchemes["bearer"]))
	assert.False(t, isBearer(testSchemes["apiKey"]))
	assert.True(t, isHeaderKey(testSchemes["apiKey"]))
	assert.False(t, isHeaderKey(testSchemes["queryKey"]))
	assert.True(t, isPasswordFlow(testSchemes["oauth"]))
	assert.False(t, isPasswordFlow(model.SecurityScheme{Type: "oauth2"}))
}

func TestAuthInputField(t *testing.T) {
	m := &authModal{}
	*m.input() = "tok"
	m.field = authFieldPass
	*m.input() = "secret"
	assert.Equal(t, "tok", m.token)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "******", mask(m.password))
}
