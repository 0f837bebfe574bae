package dhcp

// Classify decides whether a client is directly attached to this relay.
//
// A message without relay agent information is direct. A message carrying it
// is direct unless the gateway address in it belongs to this relay. Traffic
// tagged by a foreign relay therefore classifies as direct.
func Classify(optionPresent, gatewayIsLocal bool) bool {
	return !optionPresent || !gatewayIsLocal
}
