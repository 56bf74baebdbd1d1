// mpesactl is a command-line client for the Safaricom M-Pesa Daraja API.
//
// Usage:
//
//	mpesactl token                 Fetch an access token
//	mpesactl credential            Encrypt the initiator password
//	mpesactl express ...           Send an STK push
//	mpesactl b2c ...               Pay a customer
//	mpesactl bill invoice ...      Send a bill manager invoice
//
// Run mpesactl --help for the full command list.
package main

import "github.com/kevin07696/mpesa-sdk/internal/commands"

func main() {
	commands.Execute()
}
