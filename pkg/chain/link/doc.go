// Package link provides the byte channels connecting neighbouring nodes.
//
// A node owns two channels: upstream toward the aggregator and downstream
// toward the next node. Reads block for at most the channel timeout and
// report a short count instead of an error when it expires, which is the
// only timing signal the protocol has. Channels are not safe for
// concurrent readers.
package link
