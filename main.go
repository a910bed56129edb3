package main

import "github.com/iksnae/pagechat/cmd"

func main() {
	cmd.Execute()
}
