// Package shoutcast gets from a station URL to the audio bytes of an ICY/Shoutcast stream.
//
// It grew out of github.com/romantomjak/shoutcast and covers the steps a player needs
// before decoding:
//   - Playlist extraction: .pls and .m3u bodies are resolved to the actual stream URL
//   - Redirect following: Location hops are followed up to a fixed depth
//   - Metadata stripping: ICY metadata blocks are read and skipped so only audio bytes are returned
//   - No client timeout on the stream so indefinite playback is supported
package shoutcast
