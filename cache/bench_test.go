package cache

import (
	"fmt"
	"testing"
)

// BenchmarkStore_Get_Hit measures cache hit performance.
func BenchmarkStore_Get_Hit(b *testing.B) {
	s := NewStore()
	_ = s.Put("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get("key")
	}
}

// BenchmarkStore_Get_Miss measures cache miss performance.
func BenchmarkStore_Get_Miss(b *testing.B) {
	s := NewStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get("missing")
	}
}

// BenchmarkStore_Put measures write performance.
func BenchmarkStore_Put(b *testing.B) {
	s := NewStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Put(fmt.Sprintf("key-%d", i), "value")
	}
}

// BenchmarkStore_Put_SameKey measures overwrite performance.
func BenchmarkStore_Put_SameKey(b *testing.B) {
	s := NewStore()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Put("same-key", "value")
	}
}

// BenchmarkStore_OptimisticRoundTrip measures a full pending/commit cycle.
func BenchmarkStore_OptimisticRoundTrip(b *testing.B) {
	s := NewStore()
	_ = s.Put("key", 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.BeginPending("key", func(v any) any { return i })
		_ = s.Settle("key", Commit(i))
	}
}

// BenchmarkStore_Concurrent_ReadWrite measures mixed concurrent operations.
func BenchmarkStore_Concurrent_ReadWrite(b *testing.B) {
	s := NewStore()
	for i := 0; i < 100; i++ {
		_ = s.Put(fmt.Sprintf("key-%d", i), "value")
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%100)
			if i%4 == 0 {
				// 25% writes
				_ = s.Put(key, "new-value")
			} else {
				// 75% reads
				_, _ = s.Get(key)
			}
			i++
		}
	})
}

// BenchmarkValidateKey measures key validation.
func BenchmarkValidateKey(b *testing.B) {
	key := "documents:accessible:p1:s20"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateKey(key)
	}
}
