package apis

const (
	// Path parameters
	Address = "addr"

	// Query parameters
	Count = "count"

	// Response headers
	Slave = "X-Modbus-Slave"
)

// ValueBody is the body of every single-value write.
type ValueBody struct {
	Value *int `json:"value"`
}
