package dhcp

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/insomniacslk/dhcp/dhcpv6"
)

// MessageType4 enumerates the DHCPv4 messages the relay acts on.
type MessageType4 uint8

const (
	Unsupported4 MessageType4 = 0
	Discover     MessageType4 = MessageType4(layers.DHCPMsgTypeDiscover)
	Offer        MessageType4 = MessageType4(layers.DHCPMsgTypeOffer)
	Request      MessageType4 = MessageType4(layers.DHCPMsgTypeRequest)
	Decline      MessageType4 = MessageType4(layers.DHCPMsgTypeDecline)
	Ack          MessageType4 = MessageType4(layers.DHCPMsgTypeAck)
	Nak          MessageType4 = MessageType4(layers.DHCPMsgTypeNak)
	Release      MessageType4 = MessageType4(layers.DHCPMsgTypeRelease)
	Inform       MessageType4 = MessageType4(layers.DHCPMsgTypeInform)
)

func (t MessageType4) String() string {
	switch t {
	case Discover:
		return "DHCPDISCOVER"
	case Offer:
		return "DHCPOFFER"
	case Request:
		return "DHCPREQUEST"
	case Decline:
		return "DHCPDECLINE"
	case Ack:
		return "DHCPACK"
	case Nak:
		return "DHCPNAK"
	case Release:
		return "DHCPRELEASE"
	case Inform:
		return "DHCPINFORM"
	default:
		return fmt.Sprintf("UNSUPPORTED(%d)", uint8(t))
	}
}

// FromClient reports whether the message travels client to server.
func (t MessageType4) FromClient() bool {
	switch t {
	case Discover, Request, Decline, Release, Inform:
		return true
	}
	return false
}

// MessageType4Of reads option 53. Types the relay does not handle map to
// Unsupported4.
func MessageType4Of(opts layers.DHCPOptions) MessageType4 {
	for _, o := range opts {
		if o.Type == layers.DHCPOptMessageType && len(o.Data) == 1 {
			t := MessageType4(o.Data[0])
			if t >= Discover && t <= Inform {
				return t
			}
			return Unsupported4
		}
	}
	return Unsupported4
}

// MessageType6 enumerates DHCPv6 message types.
type MessageType6 uint8

const (
	Unsupported6 MessageType6 = 0
	Solicit      MessageType6 = MessageType6(dhcpv6.MessageTypeSolicit)
	Advertise    MessageType6 = MessageType6(dhcpv6.MessageTypeAdvertise)
	Request6     MessageType6 = MessageType6(dhcpv6.MessageTypeRequest)
	Confirm      MessageType6 = MessageType6(dhcpv6.MessageTypeConfirm)
	Renew        MessageType6 = MessageType6(dhcpv6.MessageTypeRenew)
	Rebind       MessageType6 = MessageType6(dhcpv6.MessageTypeRebind)
	Reply        MessageType6 = MessageType6(dhcpv6.MessageTypeReply)
	Release6     MessageType6 = MessageType6(dhcpv6.MessageTypeRelease)
	Decline6     MessageType6 = MessageType6(dhcpv6.MessageTypeDecline)
	Reconfigure  MessageType6 = MessageType6(dhcpv6.MessageTypeReconfigure)
	InfoRequest  MessageType6 = MessageType6(dhcpv6.MessageTypeInformationRequest)
	RelayForw    MessageType6 = MessageType6(dhcpv6.MessageTypeRelayForward)
	RelayRepl    MessageType6 = MessageType6(dhcpv6.MessageTypeRelayReply)
)

func (t MessageType6) String() string {
	if t == Unsupported6 || t > RelayRepl {
		return fmt.Sprintf("UNSUPPORTED(%d)", uint8(t))
	}
	return dhcpv6.MessageType(t).String()
}

func (t MessageType6) IsRelay() bool {
	return t == RelayForw || t == RelayRepl
}

// FromClient reports whether a leaf message travels client to server.
func (t MessageType6) FromClient() bool {
	switch t {
	case Solicit, Request6, Confirm, Renew, Rebind, Release6, Decline6, InfoRequest:
		return true
	}
	return false
}

func messageType6Of(b byte) MessageType6 {
	t := MessageType6(b)
	if t < Solicit || t > RelayRepl {
		return Unsupported6
	}
	return t
}
