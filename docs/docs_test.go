package docs

import (
	"encoding/json"
	"testing"
)

func TestDocListsRoutes(t *testing.T) {
	t.Parallel()

	var doc struct {
		Paths               map[string]map[string]json.RawMessage `json:"paths"`
		Definitions         map[string]json.RawMessage            `json:"definitions"`
		SecurityDefinitions map[string]json.RawMessage            `json:"securityDefinitions"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}

	for path, method := range map[string]string{
		"/users":                                        "post",
		"/users/{id}/trust":                             "get",
		"/trips/{id}/members/join":                      "post",
		"/trips/{id}/negotiation/{category}/lock":       "post",
		"/trips/{id}/payment":                           "get",
		"/internal/users/{id}/kyc":                      "put",
		"/internal/users/{id}/trips/outcome":            "post",
		"/internal/trips/{id}/payment/{userId}/confirm": "post",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("missing %s %s", method, path)
		}
	}
	for _, moved := range []string{"/users/{id}/kyc", "/users/{id}/chat-flags", "/trips/{id}/payment/confirm"} {
		if _, ok := doc.Paths[moved]; ok {
			t.Errorf("%s is served under /internal only", moved)
		}
	}
	if _, ok := doc.SecurityDefinitions["ServiceToken"]; !ok {
		t.Error("missing ServiceToken security definition")
	}
	if _, ok := doc.Definitions["response.APIResponse"]; !ok {
		t.Error("missing response envelope definition")
	}
}
