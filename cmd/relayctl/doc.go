// Command relayctl drives a running relay from the shell.
//
//	relayctl list -type dom
//	relayctl exec -params '{"selector":"#login"}' -wait click_element
//	relayctl navigate https://example.com
//	relayctl history -command navigate -limit 5
//	relayctl stats -range 7d
//	relayctl peer
//	relayctl bench -n 500 -workers 8 getTitle
//
// The relay address comes from -url or RELAY_URL.
package main
