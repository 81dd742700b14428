package main

import (
	"fmt"
	"os"
	"strconv"

	"anchord/internal/txnumber"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: txnumber decode <number> | encode <block height> <index>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "decode":
		number, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Error parsing number: %v\n", err)
			os.Exit(1)
		}
		height, index, err := txnumber.Decode(number)
		if err != nil {
			fmt.Printf("Error decoding: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("block height: %d\nindex: %d\n", height, index)

	case "encode":
		if len(os.Args) < 4 {
			fmt.Println("Usage: txnumber encode <block height> <index>")
			os.Exit(1)
		}
		height, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Printf("Error parsing block height: %v\n", err)
			os.Exit(1)
		}
		index, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil {
			fmt.Printf("Error parsing index: %v\n", err)
			os.Exit(1)
		}
		number, err := txnumber.Encode(height, index)
		if err != nil {
			fmt.Printf("Error encoding: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(number)

	default:
		fmt.Printf("Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
