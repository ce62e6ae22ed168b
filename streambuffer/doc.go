// Package streambuffer provides in-memory streams backed by growable buffers.
//
// A Source is the readable side: a producer Puts data into it, and the data is
// emitted to the reader in chunks on a timed schedule, with backpressure.
// Stop ends the stream after the buffered data drains; Fail delivers an error
// to the reader instead.
//
//	src, _ := streambuffer.NewSource(streambuffer.WithChunkSize(5))
//	src.PutString("HelloWorld")
//	src.Stop()
//	io.Copy(os.Stdout, src) // "Hello", then "World"
//
// A Sink is the writable side: it accumulates everything written to it until
// its owner drains it with Contents or ContentsString.
//
//	sink, _ := streambuffer.NewSink()
//	io.Copy(sink, r)
//	data, ok := sink.Contents(0)
//
// Both grow their buffer in steps of the increment amount and never shrink it.
package streambuffer
