package protoserial_test

import (
	"fmt"
	"log"

	"github.com/anirudhraja/protoserial"
)

const greeterProto = `syntax = "proto3";
package demo;

message Greeting {
  string name = 1;
  int32 times = 2;
}
`

func ExampleProtoserial_Convert() {
	p := protoserial.New()
	if err := p.LoadSchemaFromString("greeter.proto", greeterProto); err != nil {
		log.Fatal(err)
	}

	in := []byte(`{"name": "gopher", "times": 3}`)
	xml, err := p.Convert(in, "application/json", "application/xml", "demo.Greeting")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(xml))

	bin, err := p.Convert(xml, "application/xml", "application/x-protobuf", "demo.Greeting")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("% x\n", bin)
	// Output:
	// <root><name>gopher</name><times>3</times></root>
	// 0a 06 67 6f 70 68 65 72 10 03
}

func ExampleProtoserial_Parse() {
	p := protoserial.New()
	if err := p.LoadSchemaFromString("greeter.proto", greeterProto); err != nil {
		log.Fatal(err)
	}

	m, err := p.Parse([]byte{0x0a, 0x06, 'g', 'o', 'p', 'h', 'e', 'r', 0x10, 0x03}, "demo.Greeting")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(m)
	// Output: map[name:gopher times:3]
}

func ExampleProtoserial_Marshal() {
	p := protoserial.New()
	if err := p.LoadSchemaFromString("greeter.proto", greeterProto); err != nil {
		log.Fatal(err)
	}

	b, err := p.NewBuilder("demo.Greeting")
	if err != nil {
		log.Fatal(err)
	}
	if err := b.Set("name", "gopher"); err != nil {
		log.Fatal(err)
	}
	if err := b.Set("times", 2); err != nil {
		log.Fatal(err)
	}
	out, err := p.Marshal(b.BuildPartial(), "application/json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
	// Output: {"name":"gopher","times":2}
}
