package storage

import "testing"

func TestRedisOptionsURL(t *testing.T) {
	opts := RedisOptions("redis://:secret@localhost:6380/2")
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestRedisOptionsAzureConnectionString(t *testing.T) {
	opts := RedisOptions("cache.example.net:6380,password=abc=,ssl=True,abortConnect=False")
	if opts.Addr != "cache.example.net:6380" {
		t.Fatalf("addr = %q", opts.Addr)
	}
	if opts.Password != "abc=" {
		t.Fatalf("password = %q", opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS for ssl=True")
	}

	plain := RedisOptions("localhost:6379")
	if plain.TLSConfig != nil || plain.Password != "" {
		t.Fatalf("unexpected options: %+v", plain)
	}
}
