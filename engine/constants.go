// Copyright 2026 The JazzPetri Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

// DefaultWorkers is the default size of the pool strategy.
//
// Batches rarely contain more independent affinity groups than this, and
// larger pools mostly add scheduling overhead.
const DefaultWorkers = 8

// DefaultPartitions is the default number of logical processes of the
// partitioned strategy.
const DefaultPartitions = 4
