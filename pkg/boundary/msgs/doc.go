// Package msgs provides the boundary protocol and all message schemas.
package msgs

// The boundary protocol is communicated between the sender, outside the
// isolation boundary, and the transmitter hosted in the isolated context.
// Every message travels in a Typed envelope whose TypeID tells the kind
// (command or event), the group and whether a command is a reply.
// Replies carry the Sequence of the command they answer.
//
// Producer: sender (commands), transmitter (replies, events)
// Consumer: transmitter (commands), sender (replies, events)
