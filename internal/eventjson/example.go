package eventjson

// Example event pair: the same login described by two client versions.
const (
	ExampleA = `{
  "user_id": 123,
  "action": "login",
  "timestamp": "2025-11-22T15:00:00Z"
}`
	ExampleB = `{
  "userId": "123",
  "type": "LOGIN",
  "timestamp": "2025-11-22T15:00:00Z"
}`
)

// Example returns the bundled sample pair as raw text.
func Example() (a, b []byte) {
	return []byte(ExampleA), []byte(ExampleB)
}
