// Package node implements the chain node protocol.
//
// A node starts unassigned and waits for SET_ADDR from upstream. Once an
// address is adopted it acknowledges, reports to the AP until a
// REPORT_ACK arrives, provisions the next node downstream, and finally
// becomes a relay: REPORTs from downstream go upstream with a fresh
// timestamp and REPORT_ACKs from upstream go downstream.
//
// Every wait retries forever. An unresponsive neighbour parks the node in
// its current state, which is expected on a fixed wired chain.
package node
