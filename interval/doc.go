// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*Package interval holds the coordinate model shared by the peak classifier:
  a single genomic interval, its strand, conversion between the 1-based closed
  convention used by GFF3 and the 0-based half-open convention used by BED,
  and the chromosome orderings understood by the sort and join stages.
  Positions are PosType, currently int32, which covers every chromosome of
  the assemblies we work with.
*/
package interval
