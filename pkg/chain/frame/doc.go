// Package frame provides the chain link-layer packet format.
package frame

// Frames are exchanged between neighbouring nodes of a daisy chain over
// point-to-point serial links, both toward the aggregator (upstream) and
// toward the next node (downstream).
//
// A frame is a fixed-width 11-byte record starting with a 2-byte magic
// header. There is no length prefix, no escaping and no checksum: a
// receiver takes the first offset where the header matches and a whole
// frame fits. Random bytes equal to the header before the real one yield
// a garbage packet, and bit errors are never detected. Links are trusted
// short wires; use parity on the UART if verification is needed.
