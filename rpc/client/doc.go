// Package client implements the client side of the scallionDB protocol.
//
// A Client sends statements over one of the client transports and collects
// the streamed response. Tree wraps the statement builder, so arguments are
// validated before anything is sent.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoints:              []string{"localhost:5555"},
//		TimeoutMs:              10000,
//		RetryCount:             3,
//		ConnectionsPerEndpoint: 1,
//	}
//	c, err := client.New(config, tcp.NewTCPClientTransport())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	orders := c.Tree("orders")
//	orders.PutTree(ctx, tree.RefSelf, map[string]interface{}{}, map[string]interface{}{"shop": "north"})
//	nodes, err := orders.GetTree(ctx, tree.RefDescendants, map[string]interface{}{"status": "open"})
//
// Errors reported by the server are returned as *store.Error, so the code
// can be inspected with store.CodeOf.
//
// Thread Safety:
//
//	A Client and its Tree handles can be used from multiple goroutines.
package client
