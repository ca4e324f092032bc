/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/Maris2112/tsunamibot-whatsapp/cmd"

func main() {
	cmd.Execute()
}
