package boltwallet

import (
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

// salvage moves the database at path aside and rebuilds it from every
// record that can still be read. The original file is kept next to the new
// one and its name is returned.
func salvage(path string, timeout time.Duration) (string, int, error) {
	backup := fmt.Sprintf("%s.%d.bak", path, time.Now().Unix())
	if err := os.Rename(path, backup); err != nil {
		return "", 0, fmt.Errorf("unable to back up %s: %w", path, err)
	}

	restore := func(err error) (string, int, error) {
		os.Remove(path)
		if rerr := os.Rename(backup, path); rerr != nil {
			log.Errorf("Unable to restore %s from %s: %v", path,
				backup, rerr)
		}
		return "", 0, err
	}

	src, err := openDB(backup, true, timeout)
	if err != nil {
		return restore(fmt.Errorf("salvage failed, unable to read "+
			"%s: %w", backup, err))
	}
	defer src.Close()

	dst, err := openDB(path, false, timeout)
	if err != nil {
		return restore(err)
	}

	var recovered int
	err = dst.Update(func(dtx *bbolt.Tx) error {
		return src.View(func(stx *bbolt.Tx) error {
			return stx.ForEach(func(name []byte, b *bbolt.Bucket) error {
				n, err := copyBucket(dtx, name, b)
				recovered += n
				if err != nil {
					log.Warnf("Salvage skipped part of bucket "+
						"%s: %v", name, err)
				}
				return nil
			})
		})
	})
	if err == nil {
		err = dst.Sync()
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return restore(fmt.Errorf("salvage failed: %w", err))
	}

	return backup, recovered, nil
}

// copyBucket copies the readable records of b into a top level bucket of tx
// with the same name. Damaged pages make bbolt panic, so reading stops at
// the first one and the records copied so far are kept.
func copyBucket(tx *bbolt.Tx, name []byte, b *bbolt.Bucket) (int, error) {
	dst, err := tx.CreateBucketIfNotExists(name)
	if err != nil {
		return 0, err
	}
	return copyRecords(dst, b)
}

func copyRecords(dst, src *bbolt.Bucket) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable page: %v", r)
		}
	}()

	err = src.ForEach(func(k, v []byte) error {
		if v == nil {
			nested, err := dst.CreateBucketIfNotExists(k)
			if err != nil {
				return err
			}
			m, err := copyRecords(nested, src.Bucket(k))
			n += m
			return err
		}
		if err := dst.Put(k, v); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
